package main

import (
	"errors"
	"log"
	"mintix/src/controllers"
	"mintix/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func reserveHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/reserve", func(ctx *gin.Context) {
			var body types.ReserveRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			body.ApplyDefaults()
			result, err := controllers.Reserve(ctx.Copy(), &body)
			if err != nil {
				switch {
				case errors.Is(err, controllers.ErrTierNotFound), errors.Is(err, controllers.ErrEventNotFound):
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				case errors.Is(err, controllers.ErrBadQuantity):
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				case errors.Is(err, controllers.ErrSoldOut), errors.Is(err, controllers.ErrHighDemand), errors.Is(err, controllers.ErrEventNotOnSale):
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				case errors.Is(err, controllers.ErrGatewayFailed):
					ctx.JSON(http.StatusBadGateway, gin.H{"error": controllers.ErrGatewayFailed.Error()})
				default:
					log.Printf("Error reserving ticket: %s\n", err.Error())
					ctx.Status(http.StatusInternalServerError)
				}
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": result})
		})
	return g
}
