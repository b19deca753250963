package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/evidence"
	"github.com/Yates-Labs/carebridge/internal/patient"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handlers struct {
	patients     patient.Store
	receptionist *patient.Receptionist
	clinician    Clinician
	openai       bool
	model        string
}

type receptionistRequest struct {
	Message     string `json:"message"`
	PatientName string `json:"patient_name"`
}

type receptionistResponse struct {
	Role    string          `json:"role"`
	Text    string          `json:"text"`
	Patient *patient.Record `json:"patient,omitempty"`
	Matches []patient.Match `json:"matches,omitempty"`
}

type clinicalRequest struct {
	PatientID string `json:"patient_id"`
	Question  string `json:"question"`
	Message   string `json:"message"`
}

type clinicalResponse struct {
	Role    string              `json:"role"`
	Text    string              `json:"text"`
	Sources []evidence.Citation `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// bindLenient decodes a JSON body, treating a missing or malformed body as
// empty.
func bindLenient(c *gin.Context, dst any) {
	if err := c.ShouldBindJSON(dst); err != nil {
		logFor(c).Debug("ignoring unreadable request body", zap.Error(err))
	}
}

func (h *handlers) receptionistHandler(c *gin.Context) {
	var req receptionistRequest
	bindLenient(c, &req)

	message := req.PatientName
	if strings.TrimSpace(message) == "" {
		message = req.Message
	}

	reply, err := h.receptionist.Identify(c.Request.Context(), message)
	if err != nil {
		logFor(c).Error("patient lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "patient lookup failed"})
		return
	}

	c.JSON(http.StatusOK, receptionistResponse{
		Role:    "receptionist",
		Text:    reply.Text,
		Patient: reply.Patient,
		Matches: reply.Matches,
	})
}

func (h *handlers) clinicalHandler(c *gin.Context) {
	var req clinicalRequest
	bindLenient(c, &req)

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "patient_id required"})
		return
	}

	rec, err := h.patients.FindByID(c.Request.Context(), patientID)
	if errors.Is(err, patient.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "patient not found"})
		return
	}
	if err != nil {
		logFor(c).Error("patient lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "patient lookup failed"})
		return
	}

	question := req.Question
	if question == "" {
		question = req.Message
	}

	ans := h.clinician.AnswerQuestion(c.Request.Context(), rec.Summary(), question, rec.PatientID)

	sources := ans.Citations
	if sources == nil {
		sources = []evidence.Citation{}
	}
	c.JSON(http.StatusOK, clinicalResponse{
		Role:    "clinical",
		Text:    ans.Text,
		Sources: sources,
	})
}

func (h *handlers) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) configHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"openai_configured": h.openai,
		"model":             h.model,
	})
}
