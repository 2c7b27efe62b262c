package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/handler/helper"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
	"github.com/anubis-chat/identity-graph/internal/service"
	"github.com/anubis-chat/identity-graph/pkg/auth"
)

// AdminHandler serves the reviewer-facing operations: merge,
// audit inspection and export, token issuance and maintenance.
type AdminHandler struct {
	graphService        *service.GraphService
	mergeService        *service.MergeService
	verificationService *service.VerificationService
	jwtService          *auth.JWTService
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(
	graphService *service.GraphService,
	mergeService *service.MergeService,
	verificationService *service.VerificationService,
	jwtService *auth.JWTService,
) *AdminHandler {
	return &AdminHandler{
		graphService:        graphService,
		mergeService:        mergeService,
		verificationService: verificationService,
		jwtService:          jwtService,
	}
}

// MergeRequest names the two identities to merge.
type MergeRequest struct {
	KeepID         uint  `json:"keep_id" binding:"required"`
	MergeAwayID    uint  `json:"merge_away_id" binding:"required"`
	ActorProfileID *uint `json:"actor_profile_id"`
}

// Merge absorbs one identity into another atomically.
func (h *AdminHandler) Merge(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	keptID, err := h.mergeService.MergeIdentities(req.KeepID, req.MergeAwayID, req.ActorProfileID)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	log.Printf("[AdminHandler.Merge] identity #%d absorbed into #%d by %s", req.MergeAwayID, keptID, c.GetString("operator"))
	c.JSON(http.StatusOK, gin.H{"identity_id": keptID})
}

// AuditTrail returns the newest audit entries for one identity.
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	identityID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || identityID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.graphService.AuditTrail(uint(identityID), limit)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ExportAudit streams the audit log for a time range as CSV or XLSX.
func (h *AdminHandler) ExportAudit(c *gin.Context) {
	from, to, err := helper.ParseTimeRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10000"))

	entries, err := h.graphService.AuditRange(from, to, limit)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	filename := fmt.Sprintf("audit_%s_%s", from.Format("20060102"), to.Format("20060102"))
	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		h.exportAuditXLSX(c, entries, filename)
	case "csv":
		h.exportAuditCSV(c, entries, filename)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
	}
}

// TokenRequest asks for an admin token for a named operator. Only the API
// key holder can mint tokens.
type TokenRequest struct {
	Operator string `json:"operator" binding:"required,min=2,max=64"`
}

// IssueToken issues a short-lived admin JWT.
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.jwtService.GenerateToken(req.Operator)
	if err != nil {
		log.Printf("[AdminHandler.IssueToken] failed for %q: %v", req.Operator, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ExpireOverdueRequests bulk-expires link requests past their deadline.
// Expiry is otherwise evaluated lazily on access; this endpoint keeps the
// table tidy without a background job.
func (h *AdminHandler) ExpireOverdueRequests(c *gin.Context) {
	expired, err := h.verificationService.ExpireOverdue()
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

var auditExportHeaders = []string{"ID", "Time (UTC)", "Action", "Identity", "Actor Profile", "Details"}

func (h *AdminHandler) exportAuditCSV(c *gin.Context, entries []entity.AuditLogEntry, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(auditExportHeaders)
	for i := range entries {
		row := auditExportRow(&entries[i])
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = fmt.Sprintf("%v", v)
		}
		writer.Write(record)
	}
}

func (h *AdminHandler) exportAuditXLSX(c *gin.Context, entries []entity.AuditLogEntry, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Audit"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AdminHandler] Failed to create StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(auditExportHeaders))
	for i, hdr := range auditExportHeaders {
		headers[i] = hdr
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AdminHandler] Failed to write export headers: %v", err)
	}

	for i := range entries {
		cell := fmt.Sprintf("A%d", i+2)
		if err := sw.SetRow(cell, auditExportRow(&entries[i])); err != nil {
			log.Printf("[AdminHandler] Failed to write export row %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AdminHandler] StreamWriter flush failed: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AdminHandler] Failed to write Excel response: %v", err)
	}
}

func auditExportRow(e *entity.AuditLogEntry) []interface{} {
	identityID := ""
	if e.IdentityID != nil {
		identityID = strconv.FormatUint(uint64(*e.IdentityID), 10)
	}
	actorID := ""
	if e.ActorProfileID != nil {
		actorID = strconv.FormatUint(uint64(*e.ActorProfileID), 10)
	}
	return []interface{}{
		e.ID,
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.Action,
		identityID,
		actorID,
		sanitizeForExport(helper.FormatEvidence(e.Details)),
	}
}

// sanitizeForExport guards against formula injection in Excel/CSV viewers.
func sanitizeForExport(s string) string {
	if len(s) == 0 {
		return s
	}
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

func (h *AdminHandler) handleAdminError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrIntegrity) {
		log.Printf("ERROR: Integrity violation in AdminHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Integrity violation, manual repair required"})
	} else {
		log.Printf("ERROR: Internal server error in AdminHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
