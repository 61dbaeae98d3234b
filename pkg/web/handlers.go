package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fukivoice/fukivoice/pkg/hub"
	"github.com/fukivoice/fukivoice/pkg/textunit"
)

// preloadRequest is the body of POST /api/preload.
type preloadRequest struct {
	Direction string `json:"direction"` // "source" or "target"
}

// handleHealth reports liveness and connected clients.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"clients": s.events.ClientCount(),
	})
}

// handleGetUnits returns a snapshot of all units in document order.
func (s *Server) handleGetUnits(c *fiber.Ctx) error {
	return c.JSON(s.store.Snapshot())
}

// handlePutUnits replaces the loaded units with a new batch.
func (s *Server) handlePutUnits(c *fiber.Ctx) error {
	var units []textunit.Unit
	if err := c.BodyParser(&units); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	for _, u := range units {
		if u.ID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "unit id is required")
		}
	}

	s.store.Replace(units)
	return c.JSON(fiber.Map{"loaded": len(units)})
}

// handlePreload starts a preload batch for one direction. Any in-flight
// batch is superseded. The batch runs in the background; progress arrives
// over /ws/events.
func (s *Server) handlePreload(c *fiber.Ctx) error {
	var req preloadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	var direction textunit.Direction
	switch req.Direction {
	case "source":
		direction = textunit.Source
	case "target":
		direction = textunit.Target
	default:
		return fiber.NewError(fiber.StatusBadRequest, "direction must be source or target")
	}

	units := s.store.Snapshot()
	go s.orch.RunBatch(s.baseCtx, units, direction)

	s.events.Broadcast(hub.Event{
		Kind: hub.EventBatchStarted,
		Data: fiber.Map{"direction": req.Direction, "units": len(units)},
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"direction": req.Direction,
		"units":     len(units),
	})
}

// handleCacheClear deletes all cached audio and resets unit audio state.
func (s *Server) handleCacheClear(c *fiber.Ctx) error {
	s.orch.CancelActive()
	s.orch.Cache().ClearAll()
	s.store.ClearAudio()

	s.events.Broadcast(hub.Event{Kind: hub.EventCacheCleared})

	return c.JSON(fiber.Map{"status": "cleared"})
}
