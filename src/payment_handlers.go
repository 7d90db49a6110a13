package main

import (
	"errors"
	"log"
	"net/http"

	"qrpass/src/lib/abacate"
	"qrpass/src/models"
	"qrpass/src/payments"
	"qrpass/src/types"

	"github.com/gin-gonic/gin"
)

func customerFor(user *models.User) abacate.Customer {
	return abacate.Customer{
		Name:      user.Username,
		Email:     user.Email,
		TaxID:     user.TaxID,
		Cellphone: user.Cellphone,
	}
}

// paymentHandlers carries the authenticated charge-status poll. Only a
// party to the ticket may ask the gateway about its charge.
func paymentHandlers(g *gin.RouterGroup, svc *payments.Service) *gin.RouterGroup {
	g.
		GET("/charges/:chargeId/status", func(ctx *gin.Context) {
			chargeID := ctx.Param("chargeId")
			userId := ctx.GetUint("id")

			ticket, err := svc.Store.FindTicketByChargeID(ctx, chargeID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			involved := ticket.AddedByID == userId ||
				(ticket.PurchasedByID != nil && *ticket.PurchasedByID == userId)
			if !involved {
				ctx.Status(http.StatusForbidden)
				return
			}

			status, outcome, err := svc.PollCharge(ctx, chargeID)
			if err != nil {
				if errors.Is(err, types.ErrGatewayUnavailable) {
					ctx.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"charge_id": chargeID,
				"status":    status,
				"outcome":   string(outcome),
			})
		})
	return g
}

// publicPaymentRoutes serves the no-account payment page reached through a
// ticket's purchase link.
func publicPaymentRoutes(g *gin.Engine, svc *payments.Service) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/pay/:linkId", func(ctx *gin.Context) {
			linkID := ctx.Param("linkId")
			ticket, err := svc.Store.FindTicketByPurchaseLink(ctx, linkID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			if ticket.PaymentStatus == types.PAYMENT_PAID {
				ctx.JSON(http.StatusOK, gin.H{
					"event":          ticket.Event.Name,
					"guest_name":     ticket.Name,
					"payment_status": ticket.PaymentStatus,
					"qr_hash":        ticket.QRHash,
				})
				return
			}

			// An expired charge is replaced transparently so the page
			// always shows a payable code.
			if ticket.PaymentStatus == types.PAYMENT_FAILED || !ticket.HasLiveCharge() {
				seller, err := svc.Store.FindUserByID(ctx, ticket.AddedByID)
				if err != nil {
					log.Printf("Error loading seller for ticket %d: %s\n", ticket.ID, err.Error())
					ctx.Status(http.StatusInternalServerError)
					return
				}
				if _, err := svc.RegenerateCharge(ctx, ticket, &ticket.Event, customerFor(seller)); err != nil {
					if errors.Is(err, types.ErrGatewayUnavailable) {
						ctx.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
						return
					}
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				ticket, err = svc.Store.FindTicketByPurchaseLink(ctx, linkID)
				if err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
			}

			ctx.JSON(http.StatusOK, gin.H{
				"event":          ticket.Event.Name,
				"guest_name":     ticket.Name,
				"payment_status": ticket.PaymentStatus,
				"amount":         ticket.PurchasePrice,
				"pix_emv_code":   ticket.PixEMVCode,
				"pix_qr_base64":  ticket.PixQRBase64,
			})
		}).
		POST("/pay/:linkId/check", func(ctx *gin.Context) {
			linkID := ctx.Param("linkId")
			ticket, err := svc.Store.FindTicketByPurchaseLink(ctx, linkID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if ticket.PaymentStatus == types.PAYMENT_PAID {
				ctx.JSON(http.StatusOK, gin.H{
					"payment_status": ticket.PaymentStatus,
					"qr_hash":        ticket.QRHash,
				})
				return
			}
			if ticket.ChargeID == nil {
				ctx.JSON(http.StatusConflict, gin.H{"error": "no charge attached"})
				return
			}

			_, outcome, err := svc.PollCharge(ctx, *ticket.ChargeID)
			if err != nil {
				if errors.Is(err, types.ErrGatewayUnavailable) {
					ctx.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			ticket, err = svc.Store.FindTicketByPurchaseLink(ctx, linkID)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			resp := gin.H{
				"payment_status": ticket.PaymentStatus,
				"outcome":        string(outcome),
			}
			if ticket.PaymentStatus == types.PAYMENT_PAID {
				resp["qr_hash"] = ticket.QRHash
			}
			ctx.JSON(http.StatusOK, resp)
		})
	return apiv1
}
