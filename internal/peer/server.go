// Package peer moves snapshots between devices on the local network: a
// fiber server exposes the local export, and Client fetches it from a peer.
package peer

import (
	"context"
	"crypto/subtle"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lherron/planbak/internal/snapshot"
)

// Exporter produces the local snapshot served to peers.
type Exporter interface {
	Export(ctx context.Context) (*snapshot.Snapshot, error)
}

// HeaderSnapshotRev carries the rev of the served snapshot.
const HeaderSnapshotRev = "X-Snapshot-Rev"

// Config holds configuration for the export server.
type Config struct {
	// Token, when set, must be presented as "Authorization: Bearer <token>".
	Token string
	// Device is written into the meta of served snapshots.
	Device string
}

// Server serves the local snapshot over HTTP.
type Server struct {
	app      *fiber.App
	exporter Exporter
	cfg      Config
	logger   *zap.Logger
}

// NewServer creates the server and registers its routes.
func NewServer(exporter Exporter, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           30 * time.Second,
			WriteTimeout:          5 * time.Minute,
		}),
		exporter: exporter,
		cfg:      cfg,
		logger:   logger.Named("peer"),
	}

	s.app.Use(s.logRequests)

	v1 := s.app.Group("/v1")
	v1.Get("/health", s.handleHealth)
	v1.Get("/export", s.requireToken, s.handleExport)

	return s
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("serving snapshots", zap.String("addr", addr), zap.Bool("auth", s.cfg.Token != ""))
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("ip", c.IP()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		s.logger.Error("request failed", append(fields, zap.Error(err))...)
		return err
	}
	s.logger.Debug("request", fields...)
	return nil
}

func (s *Server) requireToken(c *fiber.Ctx) error {
	if s.cfg.Token == "" {
		return c.Next()
	}

	got, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Token)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	return c.Next()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "ok",
		"device":        s.cfg.Device,
		"schemaVersion": snapshot.SchemaVersion,
	})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	snap, err := s.exporter.Export(c.UserContext())
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "export failed"})
	}

	snap.Meta.Device = s.cfg.Device
	data, err := snapshot.Stamp(snap, time.Now())
	if err != nil {
		s.logger.Error("encode failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "encode failed"})
	}

	s.logger.Info("snapshot served",
		zap.String("snapshot_rev", snap.Meta.SnapshotRev),
		zap.Int("bytes", len(data)))

	c.Set(HeaderSnapshotRev, snap.Meta.SnapshotRev)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}
