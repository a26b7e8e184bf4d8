package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/autohaus/cos/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Hub) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": h.manager.ActiveCount(),
	})
}

// renderErrorReq mirrors the client report payload.
type renderErrorReq struct {
	PlateType           string `json:"plate_type" binding:"required"`
	Reason              string `json:"reason" binding:"required"`
	PayloadSnapshotHash string `json:"payload_snapshot_hash"`
	TargetID            string `json:"target_id"`
}

// handleRenderError lands a client-side mount failure in the audit ledger.
func (h *Hub) handleRenderError(c *gin.Context) {
	var req renderErrorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, _ := json.Marshal(req)
	evt := models.LedgerEvent{
		EventID:        uuid.NewString(),
		EventType:      models.EventRenderFailed,
		ActorType:      "SYSTEM",
		TargetType:     "PLATE",
		TargetID:       req.PlateType,
		Payload:        string(payload),
		IdempotencyKey: "render:" + req.PayloadSnapshotHash,
	}
	h.appendLedger(evt)
	c.JSON(http.StatusAccepted, gin.H{"event_id": evt.EventID})
}

// proposeReq opens a human-in-the-loop approval request.
type proposeReq struct {
	ActorUserID string          `json:"actor_user_id" binding:"required"`
	ActorRole   string          `json:"actor_role"`
	ActionType  string          `json:"action_type" binding:"required"`
	TargetType  string          `json:"target_type" binding:"required"`
	TargetID    string          `json:"target_id" binding:"required"`
	Payload     json.RawMessage `json:"payload"`
	Reason      string          `json:"reason"`
}

func (h *Hub) handlePropose(c *gin.Context) {
	var req proposeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := models.Proposal{
		ProposalID:  uuid.NewString(),
		ActorUserID: req.ActorUserID,
		ActorRole:   req.ActorRole,
		ActionType:  req.ActionType,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Payload:     string(req.Payload),
		Reason:      req.Reason,
		Status:      models.ProposalPending,
	}
	if err := h.db.Create(&p).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store proposal"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"proposal_id": p.ProposalID, "status": p.Status})
}

func (h *Hub) handlePending(c *gin.Context) {
	var pending []models.Proposal
	if err := h.db.Where("status = ?", models.ProposalPending).
		Order("created_at").Find(&pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list proposals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending, "count": len(pending)})
}

func (h *Hub) handleApprove(c *gin.Context) { h.decideProposal(c, models.ProposalApproved) }
func (h *Hub) handleReject(c *gin.Context)  { h.decideProposal(c, models.ProposalRejected) }

// decideProposal moves a pending proposal to its terminal status. Already
// decided proposals return 409 so a double click cannot flip a verdict.
func (h *Hub) decideProposal(c *gin.Context, status string) {
	var req struct {
		DecidedBy string `json:"decided_by" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var p models.Proposal
	if err := h.db.Where("proposal_id = ?", c.Param("id")).First(&p).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	if p.Status != models.ProposalPending {
		c.JSON(http.StatusConflict, gin.H{"error": "proposal already decided", "status": p.Status})
		return
	}

	now := time.Now()
	p.Status = status
	p.DecidedBy = req.DecidedBy
	p.DecidedAt = &now
	if err := h.db.Save(&p).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update proposal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal_id": p.ProposalID, "status": p.Status})
}

// publicVehicle is the sanitized listing shape. Cost basis and internal
// ownership fields never appear here.
type publicVehicle struct {
	VIN    string  `json:"vin"`
	Year   int     `json:"year"`
	Make   string  `json:"make"`
	Model  string  `json:"model"`
	Color  string  `json:"color"`
	Price  float64 `json:"price"`
	Status string  `json:"status"`
}

func (h *Hub) handlePublicInventory(c *gin.Context) {
	var vehicles []models.Vehicle
	if err := h.db.Where("status = ?", models.VehicleAvailable).
		Order("price desc").Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list inventory"})
		return
	}
	listings := make([]publicVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		listings = append(listings, publicVehicle{
			VIN:    v.VIN,
			Year:   v.Year,
			Make:   v.Make,
			Model:  v.Model,
			Color:  v.Color,
			Price:  v.Price.InexactFloat64(),
			Status: v.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{"inventory": listings, "count": len(listings)})
}

type leadReq struct {
	Name    string `json:"name" binding:"required"`
	Contact string `json:"contact" binding:"required"`
	Message string `json:"message"`
	VIN     string `json:"vin"`
}

func (h *Hub) handleLead(c *gin.Context) {
	var req leadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lead := models.Lead{Name: req.Name, Contact: req.Contact, Message: req.Message, VIN: req.VIN}
	if err := h.db.Create(&lead).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store lead"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": lead.ID})
}

// maxUploadBytes caps one attachment.
const maxUploadBytes = 25 << 20

// handleUpload stores multipart attachments and returns the upload ids a
// client references from its next command frame.
func (h *Hub) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload storage unavailable"})
		return
	}

	userID := c.PostForm("user_id")
	ids := make([]string, 0, len(files))
	for _, f := range files {
		if f.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("%s exceeds the upload limit", f.Filename)})
			return
		}
		uploadID := uuid.NewString()
		dest := filepath.Join(h.uploadDir, uploadID+filepath.Ext(f.Filename))
		if err := c.SaveUploadedFile(f, dest); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store file"})
			return
		}
		rec := models.Upload{
			UploadID: uploadID,
			FileName: filepath.Base(f.Filename),
			ByteSize: f.Size,
			MIME:     f.Header.Get("Content-Type"),
			Path:     dest,
			UserID:   userID,
		}
		if err := h.db.Create(&rec).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record upload"})
			return
		}
		ids = append(ids, uploadID)
	}
	c.JSON(http.StatusCreated, gin.H{"upload_ids": ids})
}
