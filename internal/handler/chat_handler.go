package handler

import (
	"github.com/gin-gonic/gin"

	"mingling-server/internal/service"
	"mingling-server/pkg/response"
)

// ChatHandler 对话请求处理器
// 发送消息、查询好感度和对话历史
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Message    string `json:"message"`
	PersonaID  *int64 `json:"personaId"`
	AccessCode string `json:"accessCode"`
}

// SendMessage 以 persona 身份向角色发送消息
// @Summary 发送消息
// @Description 返回角色回复和本轮好感度变化
// @Tags 对话
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "角色ID"
// @Param body body SendMessageRequest true "消息内容"
// @Success 200 {object} service.ChatResult
// @Router /api/characters/{id}/chat [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	characterID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		response.BadRequest(c, "message is required")
		return
	}
	if req.PersonaID == nil || *req.PersonaID <= 0 {
		response.BadRequest(c, "personaId is required")
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), &service.ChatRequest{
		UserID:      userID,
		CharacterID: characterID,
		PersonaID:   *req.PersonaID,
		Message:     req.Message,
		AccessCode:  req.AccessCode,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// GetAffection 获取 persona 对角色的好感度
// 还没有对话过时返回初始值，不会建立关系
// @Summary 好感度
// @Tags 对话
// @Security Bearer
// @Produce json
// @Param id path int true "角色ID"
// @Param personaId path int true "persona ID"
// @Success 200 {object} service.AffectionStatus
// @Router /api/characters/{id}/affection/{personaId} [get]
func (h *ChatHandler) GetAffection(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	characterID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	personaID, ok := parseIDParam(c, "personaId")
	if !ok {
		return
	}

	status, err := h.chatService.Affection(c.Request.Context(), userID, characterID, personaID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, status)
}

// GetHistory 获取最近的对话历史，按时间正序
// @Summary 对话历史
// @Tags 对话
// @Security Bearer
// @Produce json
// @Param id path int true "角色ID"
// @Param personaId path int true "persona ID"
// @Param limit query int false "条数"
// @Success 200 {object} service.HistoryResult
// @Router /api/characters/{id}/history/{personaId} [get]
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	characterID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	personaID, ok := parseIDParam(c, "personaId")
	if !ok {
		return
	}

	history, err := h.chatService.History(c.Request.Context(), userID, characterID, personaID, queryInt(c, "limit"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, history)
}
