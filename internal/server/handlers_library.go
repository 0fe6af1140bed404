package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LPDavidbdeb/court-sub000/internal/library"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Server) CreateDocument(c *gin.Context) {
	var d model.Document
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if d.SourceType != model.SourceReproduced && d.SourceType != model.SourceProduced {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_type must be REPRODUCED or PRODUCED"})
		return
	}
	if err := s.Store.CreateDocument(c.Request.Context(), &d); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) ListDocuments(c *gin.Context) {
	out, err := s.Store.ListDocuments(c.Request.Context(), c.Query("source_type"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (s *Server) GetDocumentTree(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	nodes, err := s.Store.ListNodesByDocument(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": library.BuildForest(nodes)})
}

// NodeRequest describes new node content. When Kind is "statement" and
// ContentID is zero, a statement is created transparently from Text.
type NodeRequest struct {
	Kind      model.EvidenceKind `json:"kind"`
	ContentID int64              `json:"content_id"`
	Item      string             `json:"item"`
	Text      string             `json:"text"`
	Position  string             `json:"position"` // sibling: left | right
}

// resolveContent creates the backing statement for user-authored nodes.
func (s *Server) resolveContent(c *gin.Context, req *NodeRequest) bool {
	if req.Kind != model.KindStatement || req.ContentID != 0 {
		return true
	}
	st := &model.Statement{Text: req.Text, IsTrue: false, IsFalsifiable: false, IsUserCreated: true}
	if err := s.Store.CreateStatement(c.Request.Context(), st); err != nil {
		fail(c, err)
		return false
	}
	req.ContentID = st.ID
	return true
}

func (s *Server) AddRootNode(c *gin.Context) {
	docID, ok := idParam(c)
	if !ok {
		return
	}
	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !s.resolveContent(c, &req) {
		return
	}
	node, err := s.Tree.AddRoot(c.Request.Context(), docID, req.Kind, req.ContentID, req.Item)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (s *Server) AddChildNode(c *gin.Context) {
	parentID, ok := idParam(c)
	if !ok {
		return
	}
	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !s.resolveContent(c, &req) {
		return
	}
	node, err := s.Tree.AddChild(c.Request.Context(), parentID, req.Kind, req.ContentID, req.Item)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (s *Server) AddSiblingNode(c *gin.Context) {
	refID, ok := idParam(c)
	if !ok {
		return
	}
	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	pos := library.Position(req.Position)
	if pos != library.PosLeft && pos != library.PosRight {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position must be left or right"})
		return
	}
	if !s.resolveContent(c, &req) {
		return
	}
	node, err := s.Tree.AddSibling(c.Request.Context(), refID, pos, req.Kind, req.ContentID, req.Item)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (s *Server) AddParentNode(c *gin.Context) {
	refID, ok := idParam(c)
	if !ok {
		return
	}
	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !s.resolveContent(c, &req) {
		return
	}
	node, err := s.Tree.AddParent(c.Request.Context(), refID, req.Kind, req.ContentID, req.Item)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (s *Server) MoveNode(c *gin.Context) {
	nodeID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		TargetID int64  `json:"target_id"`
		Position string `json:"position"` // left | right | child
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Tree.Move(c.Request.Context(), nodeID, req.TargetID, library.Position(req.Position)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "moved"})
}

func (s *Server) DeleteNode(c *gin.Context) {
	nodeID, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.Tree.Delete(c.Request.Context(), nodeID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) UpdateStatement(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var st model.Statement
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	st.ID = id
	if err := s.Store.UpdateStatement(c.Request.Context(), &st); err != nil {
		fail(c, err)
		return
	}
	st.Normalize()
	c.JSON(http.StatusOK, st)
}

func (s *Server) CorrectText(c *gin.Context) {
	var req struct {
		HTML         string `json:"html"`
		TreeContext  string `json:"tree_context"`
		CustomPrompt string `json:"custom_prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	out, err := s.Analyzer.CorrectText(c.Request.Context(), req.HTML, req.TreeContext, req.CustomPrompt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": out})
}
