package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"activation-api/internal/repository"
)

// Pinger verifica conectividad con el almacén. *pgxpool.Pool lo satisface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler expone los endpoints operativos: liveness y diagnóstico
// de la base de datos.
type SystemHandler struct {
	logger     *zap.Logger
	db         Pinger
	diag       repository.StoreDiagnostics
	production bool
}

func NewSystemHandler(logger *zap.Logger, db Pinger, diag repository.StoreDiagnostics, production bool) *SystemHandler {
	return &SystemHandler{
		logger:     logger,
		db:         db,
		diag:       diag,
		production: production,
	}
}

// Ping maneja GET /ping.
func (h *SystemHandler) Ping(c *gin.Context) {
	c.String(http.StatusOK, "Auth API working!")
}

// DBStatus maneja GET /db-status. Es un endpoint de operador: reporta
// conectividad, existencia y estructura de la tabla members, y una muestra
// de registros para depurar despliegues.
func (h *SystemHandler) DBStatus(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("database ping failed", zap.Error(err))
		body := gin.H{
			"status":   "error",
			"database": gin.H{"connected": false},
		}
		if !h.production {
			body["error"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	tableExists, err := h.diag.TableExists(ctx)
	if err != nil {
		h.dbError(c, "table existence check failed", err)
		return
	}

	var (
		userCount      int64
		sampleUsers    = []repository.MemberSummary{}
		tableStructure []repository.Column
	)
	if tableExists {
		if userCount, err = h.diag.Count(ctx); err != nil {
			h.dbError(c, "member count failed", err)
			return
		}
		if sampleUsers, err = h.diag.Sample(ctx, 5); err != nil {
			h.dbError(c, "member sample failed", err)
			return
		}
		if tableStructure, err = h.diag.Columns(ctx); err != nil {
			h.dbError(c, "table structure query failed", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "connected",
		"database": gin.H{
			"connected":      true,
			"tableExists":    tableExists,
			"userCount":      userCount,
			"sampleUsers":    sampleUsers,
			"tableStructure": tableStructure,
		},
		"recommendations": recommendations(tableExists, userCount),
	})
}

func (h *SystemHandler) dbError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	body := gin.H{
		"status":   "error",
		"database": gin.H{"connected": true},
	}
	if !h.production {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func recommendations(tableExists bool, userCount int64) []string {
	if !tableExists {
		return []string{
			"Apply the schema in migrations/001_members.sql",
			"Or run: CREATE TABLE members (...)",
		}
	}
	if userCount == 0 {
		return []string{
			"Table exists but no members found",
			"Provision one: go run ./cmd/provision -unique-id ... -email ...",
		}
	}
	return []string{"Database is ready"}
}
