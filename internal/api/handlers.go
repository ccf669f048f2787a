package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dshills/tasktree/internal/provider"
	"github.com/dshills/tasktree/internal/tags"
	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/tree"
)

type filterRequest struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

type memberRequest struct {
	ID string `json:"id" binding:"required"`
}

type orderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// fail writes err with the status matching its kind.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, provider.ErrTaskNotFound),
		errors.Is(err, provider.ErrNodeNotFound),
		errors.Is(err, tags.ErrUnknownTag):
		status = http.StatusNotFound
	case errors.Is(err, provider.ErrReadOnlyTags):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) handleListTasks(c *gin.Context) {
	var (
		list []*task.Task
		err  error
	)
	if c.Query("all") == "true" {
		list, err = s.provider.GetAllTasks(c.Request.Context())
	} else {
		list, err = s.provider.VisibleTasks(c.Request.Context())
	}
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []*task.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list, "count": len(list)})
}

func (s *Server) handleGetTask(c *gin.Context) {
	t, err := s.provider.Task(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleTree(c *gin.Context) {
	ctx := c.Request.Context()
	node, err := s.provider.Node(ctx, c.Query("node"))
	if err != nil {
		fail(c, err)
		return
	}
	children, err := s.provider.GetChildren(ctx, node)
	if err != nil {
		fail(c, err)
		return
	}
	if children == nil {
		children = []*tree.Node{}
	}
	text, tag := s.provider.Filters()
	c.JSON(http.StatusOK, gin.H{
		"nodes":  children,
		"filter": filterRequest{Text: text, Tag: tag},
		"sort":   s.provider.SortOrder(),
	})
}

func (s *Server) handleListTags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tags": s.provider.GetAllTags()})
}

func (s *Server) handleQuick(c *gin.Context) {
	list, err := s.provider.QuickTasks(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []*task.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if err := s.provider.Refresh(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	res := s.provider.LastResult()
	failed := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		failed = append(failed, e.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    res.Total(),
		"errors":   failed,
		"duration": res.Duration.String(),
	})
}

func (s *Server) handleSetFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.provider.SetTextFilter(req.Text)
	s.provider.SetTagFilter(req.Tag)
	c.JSON(http.StatusOK, gin.H{"filter": req, "active": s.provider.HasFilter()})
}

func (s *Server) handleClearFilter(c *gin.Context) {
	s.provider.ClearFilters()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAddToTag(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.provider.AddTaskToTag(c.Request.Context(), req.ID, c.Param("tag")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveFromTag(c *gin.Context) {
	if err := s.provider.RemoveTaskFromTag(c.Request.Context(), c.Param("id"), c.Param("tag")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReorder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.provider.ReorderTag(c.Request.Context(), c.Param("tag"), req.IDs); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
