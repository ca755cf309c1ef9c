package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waqiti/realtime-go/pkg/model"
	"github.com/waqiti/realtime-go/pkg/wire"
)

// PublishRequest is the body of POST /admin/publish.
type PublishRequest struct {
	// Topic in "class:id" form. Empty broadcasts to every client.
	Topic   string         `json:"topic"`
	Event   string         `json:"event" binding:"required"`
	Payload map[string]any `json:"payload" binding:"required"`
}

func (s *Server) handlePublish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	var topic *model.Topic
	if req.Topic != "" {
		t, err := model.ParseTopic(req.Topic)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		topic = &t
	}

	delivered, err := s.Publish(topic, wire.EventName(req.Event), req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("event published", "event", req.Event, "topic", req.Topic, "delivered", delivered)
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

func (s *Server) handleDrop(c *gin.Context) {
	dropped := s.DropAll()
	s.logger.Info("connections dropped", "count", dropped)
	c.JSON(http.StatusOK, gin.H{"dropped": dropped})
}

func (s *Server) handleSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.Sessions()})
}
