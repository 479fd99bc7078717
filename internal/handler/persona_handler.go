package handler

import (
	"github.com/gin-gonic/gin"

	"mingling-server/internal/service"
	"mingling-server/pkg/response"
)

// PersonaHandler persona 请求处理器
type PersonaHandler struct {
	personaService *service.PersonaService
}

// NewPersonaHandler 创建 PersonaHandler 实例
func NewPersonaHandler(personaService *service.PersonaService) *PersonaHandler {
	return &PersonaHandler{
		personaService: personaService,
	}
}

// List 获取当前用户的 persona 列表
// @Summary persona 列表
// @Tags persona
// @Security Bearer
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} service.PersonaListResult
// @Router /api/personas [get]
func (h *PersonaHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.personaService.List(c.Request.Context(), userID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Create 创建 persona
// @Summary 创建 persona
// @Tags persona
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.PersonaInput true "persona 内容"
// @Success 201 {object} model.Persona
// @Router /api/personas [post]
func (h *PersonaHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var in service.PersonaInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	persona, err := h.personaService.Create(c.Request.Context(), userID, &in)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, persona)
}

// GetDefault 获取默认 persona，没有时自动创建
// @Summary 默认 persona
// @Tags persona
// @Security Bearer
// @Produce json
// @Success 200 {object} model.Persona
// @Router /api/personas/default [get]
func (h *PersonaHandler) GetDefault(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	persona, err := h.personaService.GetDefault(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, persona)
}

// Get 获取 persona 详情
// @Router /api/personas/{id} [get]
func (h *PersonaHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	persona, err := h.personaService.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, persona)
}

// Update 更新 persona
// @Router /api/personas/{id} [put]
func (h *PersonaHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var in service.PersonaInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	persona, err := h.personaService.Update(c.Request.Context(), userID, id, &in)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, persona)
}

// SetDefault 设为默认 persona
// @Router /api/personas/{id}/default [put]
func (h *PersonaHandler) SetDefault(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	persona, err := h.personaService.SetDefault(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, persona)
}

// Delete 删除 persona 及其对话和关系
// @Router /api/personas/{id} [delete]
func (h *PersonaHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.personaService.Delete(c.Request.Context(), userID, id); err != nil {
		handleServiceError(c, err)
		return
	}

	response.NoContent(c)
}
