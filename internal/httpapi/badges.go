package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qrbadge/api/internal/realtime"
	"qrbadge/api/internal/service"
	"qrbadge/api/internal/validation"
)

type scanBody struct {
	QRCode      string `json:"qrCode"`
	Name        string `json:"name"`
	DeviceBrand string `json:"deviceBrand"`
	DeviceModel string `json:"deviceModel"`
}

type createBadgeBody struct {
	QRCode         string  `json:"qrCode"`
	Name           string  `json:"name"`
	DeviceBrand    string  `json:"deviceBrand"`
	DeviceModel    string  `json:"deviceModel"`
	ExpirationTime *string `json:"expirationTime"`
}

type updateBadgeBody struct {
	Name           *string `json:"name"`
	DeviceBrand    *string `json:"deviceBrand"`
	DeviceModel    *string `json:"deviceModel"`
	ExpirationTime *string `json:"expirationTime"`
	IsActive       *bool   `json:"isActive"`
}

// parseExpiration returns nil for missing or unparseable values, which the
// badge service treats like any other out-of-range expiration.
func parseExpiration(v *string) *time.Time {
	if v == nil {
		return nil
	}
	t, ok := validation.ParseTime(*v)
	if !ok {
		return nil
	}
	return &t
}

func (s *Server) handleValidateBadge(c *gin.Context) {
	var body scanBody
	if !bindJSON(c, &body) {
		s.metrics.scan("invalid")
		return
	}

	badge, err := s.badges.ValidateOrCreate(c.Request.Context(), service.ScanRequest{
		QRCode:      body.QRCode,
		Name:        body.Name,
		DeviceBrand: body.DeviceBrand,
		DeviceModel: body.DeviceModel,
		IPAddress:   clientIP(c),
		UserAgent:   c.Request.UserAgent(),
	})
	if err != nil {
		if service.IsKind(err, service.KindInvalidInput) {
			s.metrics.scan("invalid")
		} else {
			s.metrics.scan("error")
		}
		s.fail(c, err)
		return
	}

	s.metrics.scan("ok")
	s.publish(c, realtime.EventBadgeValidated, badge)
	c.JSON(http.StatusOK, gin.H{"success": true, "badge": badge})
}

func (s *Server) handleCheckBadge(c *gin.Context) {
	badge, err := s.badges.CheckStatus(c.Request.Context(), c.Param("qrCode"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "badge": badge})
}

func (s *Server) handleListBadges(c *gin.Context) {
	list, err := s.badges.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(list), "badges": list})
}

func (s *Server) handleGetBadge(c *gin.Context) {
	badge, err := s.badges.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "badge": badge})
}

func (s *Server) handleCreateBadge(c *gin.Context) {
	var body createBadgeBody
	if !bindJSON(c, &body) {
		return
	}

	badge, err := s.badges.Create(c.Request.Context(), service.CreateBadgeRequest{
		QRCode:         body.QRCode,
		Name:           body.Name,
		DeviceBrand:    body.DeviceBrand,
		DeviceModel:    body.DeviceModel,
		ExpirationTime: parseExpiration(body.ExpirationTime),
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c, realtime.EventBadgeCreated, badge)
	c.JSON(http.StatusCreated, gin.H{"success": true, "badge": badge})
}

func (s *Server) handleUpdateBadge(c *gin.Context) {
	var body updateBadgeBody
	if !bindJSON(c, &body) {
		return
	}

	badge, err := s.badges.Update(c.Request.Context(), c.Param("id"), service.UpdateBadgeRequest{
		Name:           body.Name,
		DeviceBrand:    body.DeviceBrand,
		DeviceModel:    body.DeviceModel,
		ExpirationTime: parseExpiration(body.ExpirationTime),
		IsActive:       body.IsActive,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c, realtime.EventBadgeUpdated, badge)
	c.JSON(http.StatusOK, gin.H{"success": true, "badge": badge})
}

func (s *Server) handleDeleteBadge(c *gin.Context) {
	id := c.Param("id")
	if err := s.badges.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c, realtime.EventBadgeDeleted, gin.H{"id": id})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Badge supprimé avec succès"})
}

func (s *Server) handleCloseEvent(c *gin.Context) {
	n, err := s.badges.CloseEvent(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c, realtime.EventBadgesClosed, gin.H{"count": n})
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n, "message": "Tous les badges ont été désactivés"})
}
