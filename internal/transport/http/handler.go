package http

import (
	"errors"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/karimjaber/finsync-service/internal/service"
)

// SignatureHeader carries the provider's hex HMAC over the raw body.
const SignatureHeader = "X-Webhook-Signature"

func RegisterHandlers(r *gin.Engine, wh *service.WebhookService, sync *service.SyncService) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := r.Group("/v1")
	{
		v1.POST("/webhooks/payments", webhookHandler(wh))
		v1.GET("/users/:id/accounts", accountsHandler(sync))
		v1.POST("/users/:id/sync", syncHandler(sync))
	}
}

func webhookHandler(wh *service.WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The raw body is what was signed; gin must not parse it first.
		payload, err := ioutil.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		res, err := wh.Process(c, payload, c.GetHeader(SignatureHeader))
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			// One generic rejection for every verification failure so the
			// sender cannot tell which check tripped.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case errors.Is(err, service.ErrMalformedEvent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		case err != nil:
			// Handler failure: no ack, the provider should retry.
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		default:
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": res.Duplicate})
		}
	}
}

func accountsHandler(sync *service.SyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		ov, err := sync.AccountOverview(c, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, ov)
	}
}

type syncReq struct {
	Full bool `json:"full"`
}

func syncHandler(sync *service.SyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		var req syncReq
		_ = c.ShouldBindJSON(&req) // body optional, defaults to balance-only
		if err := sync.RequestSync(c, id, req.Full); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"scheduled": true, "full": req.Full})
	}
}
