package mls

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/fitlcarlos/go-reso/pkg/odata"
)

// RedirectHandler resolve um número MLS para a URL canônica da listagem e
// responde com 302. Compartilha o gateway do núcleo OData.
type RedirectHandler struct {
	gateway odata.Querier
	baseURL string
	logger  *log.Logger
}

// NewRedirectHandler cria o handler de redirect sobre o gateway
func NewRedirectHandler(gateway odata.Querier, baseURL string, logger *log.Logger) *RedirectHandler {
	return &RedirectHandler{
		gateway: gateway,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// RegisterRoutes monta a rota pública de redirect no app
func (h *RedirectHandler) RegisterRoutes(router *fiber.App) {
	router.Get("/listing/:mlsNumber", h.handleListing)
}

// handleListing busca o número MLS na view de redirect e emite o 302
func (h *RedirectHandler) handleListing(c fiber.Ctx) error {
	mlsNumber := c.Params("mlsNumber")

	rows, err := h.gateway.Query(c.Context(),
		"SELECT MLSNUMBER, LISTINGPATH FROM VW_LISTING_REDIRECT WHERE MLSNUMBER = @keyValue",
		map[string]interface{}{"keyValue": mlsNumber})
	if err != nil {
		h.logger.Printf("❌ Redirect lookup falhou para %s: %v", mlsNumber, err)
		return c.Status(fiber.StatusInternalServerError).JSON(odata.ODataErrorResponse{
			Error: odata.ODataError{Code: "ServerError", Message: err.Error()},
		})
	}
	if len(rows) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(odata.ODataErrorResponse{
			Error: odata.ODataError{Code: "NotFound", Message: fmt.Sprintf("Listing '%s' not found", mlsNumber)},
		})
	}

	path := fmt.Sprintf("%v", rows[0]["LISTINGPATH"])
	target := h.baseURL + "/" + strings.TrimPrefix(path, "/")

	return c.Redirect().Status(fiber.StatusFound).To(target)
}
