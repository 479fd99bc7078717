package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"mingling-server/internal/middleware"
	"mingling-server/internal/service"
	"mingling-server/pkg/response"
)

// CharacterHandler 角色请求处理器
type CharacterHandler struct {
	characterService *service.CharacterService
}

// NewCharacterHandler 创建 CharacterHandler 实例
func NewCharacterHandler(characterService *service.CharacterService) *CharacterHandler {
	return &CharacterHandler{
		characterService: characterService,
	}
}

// List 获取角色列表
// 未登录时只能看到公开角色
// @Summary 角色列表
// @Tags 角色
// @Produce json
// @Param category query string false "分类"
// @Param gender query string false "性别"
// @Param user_id query int false "作者"
// @Param is_private query bool false "是否私有"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} service.CharacterListResult
// @Router /api/characters [get]
func (h *CharacterHandler) List(c *gin.Context) {
	q := service.ListCharactersQuery{
		Category: c.Query("category"),
		Gender:   c.Query("gender"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}

	if raw := c.Query("user_id"); raw != "" {
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid user_id")
			return
		}
		q.OwnerID = &ownerID
	}
	if raw := c.Query("is_private"); raw != "" {
		isPrivate, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "Invalid is_private")
			return
		}
		q.IsPrivate = &isPrivate
	}

	result, err := h.characterService.List(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Create 创建角色
// @Summary 创建角色
// @Tags 角色
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.CharacterInput true "角色内容"
// @Success 201 {object} model.Character
// @Router /api/characters [post]
func (h *CharacterHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var in service.CharacterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	character, err := h.characterService.Create(c.Request.Context(), userID, &in)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, character)
}

// Get 获取角色详情
// @Summary 角色详情
// @Tags 角色
// @Produce json
// @Param id path int true "角色ID"
// @Success 200 {object} model.Character
// @Router /api/characters/{id} [get]
func (h *CharacterHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	character, err := h.characterService.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, character)
}

// Update 更新角色
// @Summary 更新角色
// @Tags 角色
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "角色ID"
// @Param body body service.CharacterInput true "要更新的字段"
// @Success 200 {object} model.Character
// @Router /api/characters/{id} [put]
func (h *CharacterHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in service.CharacterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	character, err := h.characterService.Update(c.Request.Context(), userID, id, &in)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, character)
}

// Delete 删除角色
// 默认软删除，?hard=true 时连同对话和关系一起删除
// @Summary 删除角色
// @Tags 角色
// @Security Bearer
// @Param id path int true "角色ID"
// @Param hard query bool false "是否硬删除"
// @Success 204
// @Router /api/characters/{id} [delete]
func (h *CharacterHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	hard, _ := strconv.ParseBool(c.DefaultQuery("hard", "false"))

	if err := h.characterService.Delete(c.Request.Context(), userID, id, hard); err != nil {
		handleServiceError(c, err)
		return
	}

	response.NoContent(c)
}
