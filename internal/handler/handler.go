package handler

import (
	"errors"
	"strconv"
	"time"

	"rechargesystem/internal/service"
	"rechargesystem/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 充值接口，只做参数绑定与错误码转换
type Handler struct {
	recharges *service.RechargeService
	matcher   *service.AutoMatcher
	log       *zap.Logger
}

func NewHandler(recharges *service.RechargeService, matcher *service.AutoMatcher, log *zap.Logger) *Handler {
	return &Handler{recharges: recharges, matcher: matcher, log: log}
}

// ============================================================
// 用户接口
// ============================================================

// CreateRechargeRequest 用户提交的申请，不接受奖励指定
// amount 不设 required，0 与负数统一由服务层返回金额错误
type CreateRechargeRequest struct {
	UserID  int64  `json:"user_id" binding:"required"`
	Amount  int64  `json:"amount"`
	Channel string `json:"channel"`
}

// CreateRecharge 创建充值申请
// POST /api/v1/recharge/create
func (h *Handler) CreateRecharge(c *gin.Context) {
	var req CreateRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	h.createRecharge(c, &service.CreateRequest{
		UserID:  req.UserID,
		Amount:  req.Amount,
		Channel: req.Channel,
		IP:      c.ClientIP(),
	})
}

func (h *Handler) createRecharge(c *gin.Context, req *service.CreateRequest) {
	recharge, err := h.recharges.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"id":          recharge.ID,
		"recharge_no": recharge.RechargeNo,
		"status":      recharge.Status,
		"amount":      recharge.Amount,
		"bonus":       recharge.Bonus,
	})
}

// GetRecharge 查询充值申请
// GET /api/v1/recharge/detail?id=xxx
func (h *Handler) GetRecharge(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	recharge, err := h.recharges.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, recharge)
}

// ListRecharges 查询用户充值记录
// GET /api/v1/recharge/list?user_id=xxx&page=1&page_size=10
func (h *Handler) ListRecharges(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	list, total, err := h.recharges.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 管理员接口
// ============================================================

type MarkWaitingRequest struct {
	ID int64 `json:"id" binding:"required"`
}

// MarkWaiting 转为等待入金
// POST /api/v1/admin/recharge/waiting
func (h *Handler) MarkWaiting(c *gin.Context) {
	var req MarkWaitingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.recharges.MarkWaiting(c.Request.Context(), req.ID, actorFrom(c)); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"id": req.ID})
}

type AdminCreateRechargeRequest struct {
	UserID  int64  `json:"user_id" binding:"required"`
	Amount  int64  `json:"amount"`
	Channel string `json:"channel"`
	Bonus   *int64 `json:"bonus"`
}

// AdminCreateRecharge 管理员代用户创建申请，可指定奖励
// POST /api/v1/admin/recharge/create
func (h *Handler) AdminCreateRecharge(c *gin.Context) {
	var req AdminCreateRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	actor := actorFrom(c)
	if req.Bonus != nil {
		h.log.Info("管理员指定充值奖励",
			zap.String("actor", actor.Username),
			zap.Int64("userID", req.UserID),
			zap.Int64("bonus", *req.Bonus))
	}
	h.createRecharge(c, &service.CreateRequest{
		UserID:        req.UserID,
		Amount:        req.Amount,
		Channel:       req.Channel,
		BonusOverride: req.Bonus,
		IP:            actor.IP,
	})
}

type BatchRequest struct {
	IDs   []int64 `json:"ids" binding:"required,min=1"`
	Bonus *int64  `json:"bonus"`
}

// Approve 批量批准
// POST /api/v1/admin/recharge/approve
func (h *Handler) Approve(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	h.writeBatch(c, h.recharges.Approve(c.Request.Context(), req.IDs, actorFrom(c), req.Bonus))
}

// Cancel 批量取消
// POST /api/v1/admin/recharge/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	h.writeBatch(c, h.recharges.Cancel(c.Request.Context(), req.IDs, actorFrom(c)))
}

// ============================================================
// 银行短信接口
// ============================================================

type BankNotificationRequest struct {
	Amount     string    `json:"amount" binding:"required"`
	Depositor  string    `json:"depositor" binding:"required"`
	Message    string    `json:"message" binding:"required"`
	NotifiedAt time.Time `json:"notified_at"`
}

// BankNotification 短信转发程序推送入账短信
// POST /api/v1/notify/bank
func (h *Handler) BankNotification(c *gin.Context) {
	var req BankNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if req.NotifiedAt.IsZero() {
		req.NotifiedAt = time.Now().UTC()
	}

	matched, err := h.matcher.MatchAndApprove(c.Request.Context(), service.Notification{
		AmountText: req.Amount,
		Depositor:  req.Depositor,
		Message:    req.Message,
		NotifiedAt: req.NotifiedAt,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"matched": matched})
}

type AutoApproveRequest struct {
	RechargeID     int64     `json:"recharge_id" binding:"required"`
	AutoRechargeID int64     `json:"auto_recharge_id" binding:"required"`
	Message        string    `json:"message"`
	Depositor      string    `json:"depositor"`
	Amount         string    `json:"amount"`
	NotifiedAt     time.Time `json:"notified_at"`
}

// AutoApprove 直接指定申请自动批准，凭证由服务层校验
// POST /api/v1/notify/auto-approve
func (h *Handler) AutoApprove(c *gin.Context) {
	var req AutoApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if req.NotifiedAt.IsZero() {
		req.NotifiedAt = time.Now().UTC()
	}

	err := h.recharges.AutoApprove(c.Request.Context(), &service.AutoApproveRequest{
		RechargeID:     req.RechargeID,
		AutoRechargeID: req.AutoRechargeID,
		Credential:     service.Credential(c.GetHeader(HeaderAPIKey)),
		Message:        req.Message,
		Depositor:      req.Depositor,
		AmountText:     req.Amount,
		NotifiedAt:     req.NotifiedAt,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"id": req.RechargeID})
}

func (h *Handler) writeBatch(c *gin.Context, result *service.BatchResult) {
	if len(result.Failed) == 0 {
		response.Success(c, gin.H{"succeeded": result.Succeeded})
		return
	}

	failed := make(map[string]string, len(result.Failed))
	for id, err := range result.Failed {
		failed[strconv.FormatInt(id, 10)] = err.Error()
	}
	response.ErrorWithData(c, response.CodePartialFailure, "部分申请处理失败", gin.H{
		"succeeded": result.Succeeded,
		"failed":    failed,
	})
}

// writeError 服务层错误转换为业务码
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrTransactionNotFound):
		response.BusinessError(c, response.CodeRechargeNotFound, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.BusinessError(c, response.CodeUserNotFound, err.Error())
	case errors.Is(err, service.ErrWalletNotFound):
		response.BusinessError(c, response.CodeWalletNotFound, err.Error())
	case errors.Is(err, service.ErrConfigNotFound):
		response.BusinessError(c, response.CodeBonusConfigNotFound, err.Error())
	case errors.Is(err, service.ErrAutoRechargeNotFound), errors.Is(err, service.ErrDataNotFound):
		response.BusinessError(c, response.CodeAutoRechargeNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidStateTransition):
		response.BusinessError(c, response.CodeStatusTransition, err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		response.BusinessError(c, response.CodeInvalidAmount, err.Error())
	default:
		h.log.Error("请求处理失败", zap.String("path", c.FullPath()), zap.Error(err))
		response.ServerError(c, "服务器内部错误")
	}
}
