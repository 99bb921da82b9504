package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-hexapod/pkg/hexapod"
	"github.com/teslashibe/go-hexapod/pkg/hub"
	"github.com/teslashibe/go-hexapod/pkg/protocol"
	"github.com/teslashibe/go-hexapod/pkg/robot"
)

// handleStatus returns the latest controller snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Snapshot())
}

// handleStats returns cycle timing statistics
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Stats())
}

// handleTouch injects a virtual touch pattern
func (s *Server) handleTouch(c *fiber.Ctx) error {
	pattern, err := strconv.Atoi(c.Params("pattern"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "pattern must be an integer",
		})
	}
	if err := s.ctrl.InjectTouch(pattern); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.logger.Info("virtual touch", "pattern", pattern)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"pattern": pattern})
}

// handleMove queues a teleop request from a JSON body
func (s *Server) handleMove(c *fiber.Ctx) error {
	var req protocol.MoveData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid body",
		})
	}
	if err := s.queueMove(req); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(req)
}

func (s *Server) queueMove(req protocol.MoveData) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.ctrl.QueueMove(robot.MoveRequest{
		Speed:     req.Speed,
		Direction: req.Direction,
		TurnRate:  req.TurnRate,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, hexapod.ErrInvalidPattern),
		errors.Is(err, protocol.ErrInvalidMove),
		errors.Is(err, protocol.ErrInvalidTouch):
		return fiber.StatusBadRequest
	case errors.Is(err, hexapod.ErrNotInjectable):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// handleTelemetryWS streams snapshots, starting with the current one
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	client := hub.NewClient(s.telemetryHub, c)
	if msg, err := telemetryMessage(s.ctrl.Snapshot()); err == nil {
		if m, err := hub.Encode(msg); err == nil {
			client.Send(m)
		}
	}
	client.Run()
}

// handleTeleopWS accepts move and touch messages
func (s *Server) handleTeleopWS(c *websocket.Conn) {
	hub.NewClient(s.teleopHub, c).Run()
}

// handleTeleopMessage dispatches one inbound teleop message and replies on
// errors and pings.
func (s *Server) handleTeleopMessage(c *hub.Client, data []byte) {
	reply := func(msg *protocol.Message, err error) {
		if err != nil {
			return
		}
		if m, err := hub.Encode(msg); err == nil {
			c.Send(m)
		}
	}
	fail := func(err error) {
		s.logger.Debug("teleop request rejected", "client", c.ID, "error", err)
		reply(protocol.NewErrorMessage(err))
	}

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		fail(err)
		return
	}

	switch msg.Type {
	case protocol.TypeMove:
		move, err := msg.GetMoveData()
		if err != nil {
			fail(err)
			return
		}
		if err := s.queueMove(*move); err != nil {
			fail(err)
		}
	case protocol.TypeTouch:
		touch, err := msg.GetTouchData()
		if err != nil {
			fail(err)
			return
		}
		if err := s.ctrl.InjectTouch(touch.Pattern); err != nil {
			fail(err)
		}
	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			fail(err)
			return
		}
		reply(protocol.NewPongMessage(ping.ID, ping.Timestamp, s.clock.Now().UnixMilli()))
	default:
		fail(errors.New("unsupported message type " + strconv.Quote(string(msg.Type))))
	}
}

// telemetryMessage converts a snapshot to its wire form
func telemetryMessage(snap hexapod.Snapshot) (*protocol.Message, error) {
	return protocol.NewTelemetryMessage(protocol.TelemetryData{
		SessionID: snap.SessionID,
		Seq:       snap.Seq,
		Awake:     snap.Awake,
		Mode:      snap.Mode.String(),
		Pose:      snap.Pose,
		Calibration: protocol.CalibrationData{
			Leg:   snap.Calibration.Leg,
			Layer: snap.Calibration.Layer,
			Trim:  snap.Calibration.Trim,
		},
		Cycles:     snap.Stats.Cycles,
		Overruns:   snap.Stats.Overruns,
		MeanPeriod: snap.Stats.MeanPeriod.Seconds() * 1000,
		P99Compute: snap.Stats.P99Kinematics.Seconds() * 1000,
	})
}
