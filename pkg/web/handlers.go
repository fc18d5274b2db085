package web

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/teslashibe/go-camrng/pkg/camera"
	"github.com/teslashibe/go-camrng/pkg/camrng"
	"github.com/teslashibe/go-camrng/pkg/hub"
	"github.com/teslashibe/go-camrng/pkg/moments"
	"github.com/teslashibe/go-camrng/pkg/rng"
)

// Lucky digit limits.
const (
	DefaultDigits = 6
	MaxDigits     = 64
)

// Event types on /ws/moments.
const (
	EventMoment    = "moment"
	EventAnnotated = "annotated"
)

// errBadRequest marks invalid query parameters.
var errBadRequest = errors.New("bad request")

// Value is one generated number.
type Value struct {
	Value int64  `json:"value"`
	Label string `json:"label,omitempty"`
}

// RollResponse is returned by /api/roll.
type RollResponse struct {
	MomentID string  `json:"moment_id,omitempty"`
	Seed     string  `json:"seed"`
	Lower    int64   `json:"lower"`
	Upper    int64   `json:"upper"`
	Values   []Value `json:"values"`
}

// CoinFlipResponse is returned by /api/coin-flip.
type CoinFlipResponse struct {
	MomentID string `json:"moment_id,omitempty"`
	Seed     string `json:"seed"`
	Result   string `json:"result"`
}

// LuckyDigitsResponse is returned by /api/lucky-digits.
type LuckyDigitsResponse struct {
	MomentID string `json:"moment_id,omitempty"`
	Seed     string `json:"seed"`
	Digits   string `json:"digits"`
}

// StreamMessage is one websocket frame on /ws/roll.
// Type is "seed", "value", "done" or "error".
type StreamMessage struct {
	Type  string `json:"type"`
	Seed  string `json:"seed,omitempty"`
	Index int    `json:"index"`
	Value *Value `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// AnnotateRequest is the body of PATCH /api/moments/:id.
type AnnotateRequest struct {
	Annotation string `json:"annotation"`
}

type rollParams struct {
	count    int
	lower    int64
	upper    int64
	coinFlip bool
}

// parseRollParams reads count, lower, upper and coin_flip through query,
// which returns "" for a missing key.
func (s *Server) parseRollParams(query func(key string) string) (rollParams, error) {
	p := rollParams{count: 5, lower: rng.DefaultLower, upper: rng.DefaultUpper}

	if v := query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > s.cfg.MaxCount {
			return p, fmt.Errorf("%w: count must be an integer in [0, %d]", errBadRequest, s.cfg.MaxCount)
		}
		p.count = n
	}
	if v := query("lower"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, fmt.Errorf("%w: lower must be an integer", errBadRequest)
		}
		p.lower = n
	}
	if v := query("upper"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, fmt.Errorf("%w: upper must be an integer", errBadRequest)
		}
		p.upper = n
	}
	if v := query("coin_flip"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("%w: coin_flip must be a boolean", errBadRequest)
		}
		p.coinFlip = b
	}
	if err := rng.CheckBounds(p.lower, p.upper); err != nil {
		return p, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}

// fail writes a JSON error with a status derived from err.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var ce *camera.CaptureError
	switch {
	case errors.Is(err, errBadRequest):
		status = fiber.StatusBadRequest
	case errors.Is(err, moments.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.As(err, &ce), errors.Is(err, camrng.ErrNoOpener):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func toValue(v int64, coinFlip bool) Value {
	return Value{Value: v, Label: lo.Ternary(coinFlip, rng.Label(v), "")}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	count := 0
	if s.store != nil {
		count = s.store.Count()
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"device":  s.camera.Config().Device,
		"moments": count,
	})
}

// handleRoll captures a frame and returns count values.
func (s *Server) handleRoll(c *fiber.Ctx) error {
	p, err := s.parseRollParams(func(key string) string { return c.Query(key) })
	if err != nil {
		return fail(c, err)
	}

	sd, _, err := s.captureSeed(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	gen, err := rng.New(sd, p.lower, p.upper)
	if err != nil {
		return fail(c, err)
	}

	resp := RollResponse{Seed: sd.String(), Lower: p.lower, Upper: p.upper, Values: make([]Value, 0, p.count)}
	for v := range gen.Values(p.count) {
		resp.Values = append(resp.Values, toValue(v, p.coinFlip))
	}

	resp.MomentID = s.record(&moments.Moment{
		Mode:        lo.Ternary(p.coinFlip, moments.ModeCoinFlip, moments.ModeNumbers),
		Seed:        resp.Seed,
		ResultTitle: fmt.Sprintf("%d numbers in [%d, %d)", p.count, p.lower, p.upper),
		ResultValue: strings.Join(lo.Map(resp.Values, func(v Value, _ int) string {
			return rng.Format(v.Value, p.coinFlip)
		}), ", "),
	})
	return c.JSON(resp)
}

// handleCoinFlip captures a frame and flips one coin.
func (s *Server) handleCoinFlip(c *fiber.Ctx) error {
	sd, _, err := s.captureSeed(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	gen, err := rng.New(sd, 0, 2)
	if err != nil {
		return fail(c, err)
	}

	resp := CoinFlipResponse{Seed: sd.String(), Result: gen.Flip()}
	resp.MomentID = s.record(&moments.Moment{
		Mode:        moments.ModeCoinFlip,
		Seed:        resp.Seed,
		ResultTitle: "Coin flip",
		ResultValue: resp.Result,
	})
	return c.JSON(resp)
}

// handleLuckyDigits captures a frame and draws a digit string.
func (s *Server) handleLuckyDigits(c *fiber.Ctx) error {
	length := DefaultDigits
	if v := c.Query("length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxDigits {
			return fail(c, fmt.Errorf("%w: length must be an integer in [1, %d]", errBadRequest, MaxDigits))
		}
		length = n
	}

	sd, _, err := s.captureSeed(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	gen, err := rng.New(sd, 0, 10)
	if err != nil {
		return fail(c, err)
	}

	resp := LuckyDigitsResponse{Seed: sd.String(), Digits: gen.LuckyDigits(length)}
	resp.MomentID = s.record(&moments.Moment{
		Mode:        moments.ModeLuckyDigits,
		Seed:        resp.Seed,
		ResultTitle: fmt.Sprintf("%d lucky digits", length),
		ResultValue: resp.Digits,
	})
	return c.JSON(resp)
}

// handleListMoments returns the journal, newest first.
func (s *Server) handleListMoments(c *fiber.Ctx) error {
	if s.store == nil {
		return c.JSON([]*moments.Moment{})
	}
	list, err := s.store.List()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

// handleAnnotateMoment sets the annotation of a journaled moment.
func (s *Server) handleAnnotateMoment(c *fiber.Ctx) error {
	if s.store == nil {
		return fail(c, fmt.Errorf("%w: journal disabled", moments.ErrNotFound))
	}

	var req AnnotateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}

	id := c.Params("id")
	if err := s.store.UpdateAnnotation(id, req.Annotation); err != nil {
		return fail(c, err)
	}
	m, err := s.store.Get(id)
	if err != nil {
		return fail(c, err)
	}
	s.publish(EventAnnotated, m)
	return c.JSON(m)
}

// handleGetCamera returns the current capture configuration.
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(cameraResponse(s.camera.Config()))
}

// handleUpdateCamera applies a partial capture configuration update.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	var params map[string]any
	if err := c.BodyParser(&params); err != nil {
		return fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	if err := s.camera.Update(params); err != nil {
		return fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	cfg := s.camera.Config()
	s.logger.Info("camera config updated", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height)
	return c.JSON(cameraResponse(cfg))
}

func cameraResponse(cfg camera.Config) fiber.Map {
	return fiber.Map{
		"device":     cfg.Device,
		"warmup":     cfg.Warmup,
		"width":      cfg.Width,
		"height":     cfg.Height,
		"timeout_ms": cfg.Timeout.Milliseconds(),
		"presets":    camera.Presets(),
	}
}

// handleRollWS streams one message per value as it is drawn, then closes.
func (s *Server) handleRollWS(conn *websocket.Conn) {
	defer conn.Close()

	sendErr := func(err error) {
		conn.WriteJSON(StreamMessage{Type: "error", Error: err.Error()})
	}

	p, err := s.parseRollParams(func(key string) string { return conn.Query(key) })
	if err != nil {
		sendErr(err)
		return
	}

	sd, _, err := s.captureSeed(context.Background())
	if err != nil {
		sendErr(err)
		return
	}
	gen, err := rng.New(sd, p.lower, p.upper)
	if err != nil {
		sendErr(err)
		return
	}

	if err := conn.WriteJSON(StreamMessage{Type: "seed", Seed: sd.String()}); err != nil {
		return
	}
	i := 0
	for v := range gen.Values(p.count) {
		val := toValue(v, p.coinFlip)
		if err := conn.WriteJSON(StreamMessage{Type: "value", Index: i, Value: &val}); err != nil {
			s.logger.Debug("roll stream closed by client", "sent", i, "error", err)
			return
		}
		i++
	}
	conn.WriteJSON(StreamMessage{Type: "done"})
}

// handleMomentsWS subscribes the connection to journal events.
func (s *Server) handleMomentsWS(conn *websocket.Conn) {
	client := hub.NewClient(s.feed, conn)
	if client == nil {
		conn.Close()
		return
	}
	client.Run()
}
