package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"qrpass/src/lib/abacate"
	"qrpass/src/payments"
	"qrpass/src/types"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "Abacate-Signature"

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID string `json:"id"`
	} `json:"data"`
}

// verifySignature checks the hex HMAC-SHA256 of the raw body against the
// provider's signature header. The body must be the exact received bytes;
// re-serialized JSON will not verify.
func verifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func webhookRoutes(g *gin.Engine, svc *payments.Service, secret string) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhooks/abacatepay", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		signature := ctx.GetHeader(signatureHeader)
		if signature == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
			return
		}
		if !verifySignature(secret, payload, signature) {
			log.Println("[webhook] signature mismatch, payload dropped")
			ctx.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}

		var event webhookPayload
		if err := json.Unmarshal(payload, &event); err != nil || event.Event == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
			return
		}
		log.Printf("[AbacateEvent] %s\n", event.Event)
		if event.Event != "pix_qr_code.paid" {
			ctx.JSON(http.StatusOK, gin.H{"received": true, "ignored": event.Event})
			return
		}
		if event.Data.ID == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
			return
		}

		outcome, err := svc.ApplyExternalStatus(ctx, event.Data.ID, abacate.StatusPaid)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				// Ack so the provider stops retrying a charge we never
				// issued; the event stays in the server log.
				log.Printf("[webhook] no ticket for charge %s\n", event.Data.ID)
				ctx.JSON(http.StatusOK, gin.H{"received": true})
				return
			}
			log.Printf("[webhook] error applying charge %s: %s\n", event.Data.ID, err.Error())
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"received": true, "outcome": string(outcome)})
	})
	return apiv1
}
