package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type CatalogController struct {
	Catalog *services.CatalogService
}

func NewCatalogController(catalog *services.CatalogService) *CatalogController {
	return &CatalogController{Catalog: catalog}
}

// ListMenus -> snapshot katalog lokal
func (cc *CatalogController) ListMenus(c *gin.Context) {
	menus, err := cc.Catalog.ListMenus()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

// RefreshMenus -> tarik snapshot baru dari back office
func (cc *CatalogController) RefreshMenus(c *gin.Context) {
	n, err := cc.Catalog.Refresh(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusBadGateway, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Catalog refreshed", gin.H{"menus": n})
}
