package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetOrder serves the polling observer. Not-found is a normal answer
// while webhook delivery is still in flight.
func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.orderSvc.FindByExternalID(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if order == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, order)
}
