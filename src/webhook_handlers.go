package main

import (
	"io"
	"log"
	"mintix/src/controllers"
	"net/http"

	"github.com/gin-gonic/gin"
)

// paymentWebhookRoute registers the provider callback. Every readable
// delivery is acked with 200 no matter how processing went; anything else
// makes the provider redeliver and amplifies the original failure.
func paymentWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/payments", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		signature := ctx.GetHeader("X-Payment-Signature")
		result := controllers.HandlePaymentEvent(ctx.Copy(), payload, signature)
		log.Printf("[PaymentEvent] result: %s\n", result)
		ctx.JSON(http.StatusOK, gin.H{"received": true})
	})
	return apiv1
}
