package main

import (
	"errors"
	"log"
	"mintix/src/controllers"
	"mintix/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func eventStatusCode(err error) int {
	switch {
	case errors.Is(err, controllers.ErrEventNotFound), errors.Is(err, controllers.ErrTierNotFound):
		return http.StatusNotFound
	case errors.Is(err, controllers.ErrEventClosed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func eventHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/events", func(ctx *gin.Context) {
			events, err := controllers.ListEvents()
			if err != nil {
				log.Printf("Error retrieving Events: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": events})
		}).
		GET("/events/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, err := controllers.GetEvent(params.ID)
			if err != nil {
				ctx.JSON(eventStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		}).
		POST("/events", func(ctx *gin.Context) {
			var body types.CreateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, err := controllers.CreateEvent(&body)
			if err != nil {
				log.Printf("Error creating Event: %s\n", err.Error())
				ctx.JSON(eventStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": event.ID})
		}).
		POST("/events/:id/publish", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, err := controllers.PublishEvent(params.ID)
			if err != nil {
				ctx.JSON(eventStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		}).
		GET("/events/:id/tiers", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			tiers, err := controllers.ListTiers(params.ID)
			if err != nil {
				ctx.JSON(eventStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tiers})
		}).
		POST("/events/:id/tiers", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CreateTierRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			tier, err := controllers.CreateTier(params.ID, &body)
			if err != nil {
				log.Printf("Error creating TicketTier: %s\n", err.Error())
				ctx.JSON(eventStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": tier.ID})
		}).
		GET("/events/:id/registry", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rows, err := controllers.ListRegistry(params.ID)
			if err != nil {
				ctx.JSON(eventStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": rows})
		}).
		POST("/events/:id/registry", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.RegisterChainRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			registry, err := controllers.RegisterChain(params.ID, &body)
			if err != nil {
				log.Printf("Error registering chain ids: %s\n", err.Error())
				ctx.JSON(eventStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": registry})
		})
	return g
}
