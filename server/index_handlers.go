package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"videoSearch/core"
)

// Indexer 入库操作
type Indexer interface {
	IndexShot(ctx context.Context, collection, jobID, shotID string) (core.Shot, error)
	SegmentTranscript(ctx context.Context, jobID string) ([]core.SubtitleSegment, error)
}

// IndexHandlers 入库相关的HTTP处理器
type IndexHandlers struct {
	indexer  Indexer
	validate *validator.Validate
}

type indexShotRequest struct {
	Index  string `json:"index" validate:"required"`
	JobID  string `json:"jobId" validate:"required"`
	ShotID string `json:"shot_id" validate:"required"`
}

// IndexShot POST /shots/index
func (h *IndexHandlers) IndexShot(c *fiber.Ctx) error {
	var req indexShotRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", core.ErrInvalidQuery, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidQuery, describeValidation(err))
	}

	shot, err := h.indexer.IndexShot(c.UserContext(), req.Index, req.JobID, req.ShotID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":         "ok",
		"doc_id":         shot.DocumentID(),
		"shot_startTime": shot.StartTime,
		"shot_endTime":   shot.EndTime,
	})
}

// SegmentTranscript POST /transcripts/:jobId/segment
func (h *IndexHandlers) SegmentTranscript(c *fiber.Ctx) error {
	jobID := strings.TrimSpace(c.Params("jobId"))
	if jobID == "" {
		return fmt.Errorf("%w: jobId is required", core.ErrInvalidQuery)
	}
	segments, err := h.indexer.SegmentTranscript(c.UserContext(), jobID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(segments)
}
