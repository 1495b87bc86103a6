package main

import (
	"errors"
	"log"
	"mintix/src/controllers"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func metadataHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/metadata/:tokenId", func(ctx *gin.Context) {
			tokenId, err := strconv.ParseUint(ctx.Param("tokenId"), 10, 64)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
				return
			}
			metadata, err := controllers.ProjectMetadata(ctx.Copy(), tokenId)
			if err != nil {
				if errors.Is(err, controllers.ErrTokenNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				log.Printf("Error projecting metadata for token %d: %s\n", tokenId, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": metadata})
		})
	return g
}
