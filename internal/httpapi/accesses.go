package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qrbadge/api/internal/realtime"
)

func (s *Server) handleListAccesses(c *gin.Context) {
	list, err := s.accesses.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(list), "accesses": list})
}

func (s *Server) handleListBadgeAccesses(c *gin.Context) {
	badge, list, err := s.accesses.ListByBadge(c.Request.Context(), c.Param("badgeId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(list), "badge": badge, "accesses": list})
}

func (s *Server) handleAccessStats(c *gin.Context) {
	stats, err := s.accesses.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (s *Server) handleDeleteAccess(c *gin.Context) {
	id := c.Param("id")
	if err := s.accesses.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c, realtime.EventAccessDeleted, gin.H{"id": id})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Accès supprimé avec succès"})
}
