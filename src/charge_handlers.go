package main

import (
	"errors"
	"log"
	"mintix/src/controllers"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func chargeHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/charges/:id", func(ctx *gin.Context) {
			id, err := uuid.Parse(ctx.Param("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid charge id"})
				return
			}
			charge, err := controllers.GetCharge(id)
			if err != nil {
				if errors.Is(err, controllers.ErrChargeNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				log.Printf("Error retrieving Charge: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": charge})
		}).
		// Operator lever: re-drive the mint for a confirmed charge whose
		// previous attempt failed. Idempotent for already-minted charges.
		POST("/charges/:id/mint", func(ctx *gin.Context) {
			id, err := uuid.Parse(ctx.Param("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid charge id"})
				return
			}
			outcome, err := controllers.Mint(ctx.Copy(), id)
			if err != nil {
				switch {
				case errors.Is(err, controllers.ErrChargeNotFound):
					ctx.Status(http.StatusNotFound)
				case errors.Is(err, controllers.ErrNotEligible), errors.Is(err, controllers.ErrNotRegistered):
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				case errors.Is(err, controllers.ErrMintFailed):
					ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				default:
					log.Printf("Error minting charge %s: %s\n", id, err.Error())
					ctx.Status(http.StatusInternalServerError)
				}
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": outcome})
		})
	return g
}
