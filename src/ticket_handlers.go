package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"qrpass/src/idgen"
	"qrpass/src/lib"
	"qrpass/src/models"
	"qrpass/src/payments"
	"qrpass/src/store"
	"qrpass/src/types"

	"github.com/gin-gonic/gin"
)

func ticketFieldProbe(st store.TicketStore, field string) idgen.TakenFunc {
	return func(ctx context.Context, value string) (bool, error) {
		return st.TicketFieldTaken(ctx, field, value)
	}
}

// rollbackTicket removes a ticket whose charge could not be opened, so no
// half-sold ticket lingers.
func rollbackTicket(ctx context.Context, st store.TicketStore, ticketID uint) {
	if err := st.DeleteTicket(ctx, ticketID); err != nil {
		log.Printf("Error rolling back ticket %d: %s\n", ticketID, err.Error())
	}
}

func ticketHandlers(g *gin.RouterGroup, st store.TicketStore, svc *payments.Service) *gin.RouterGroup {
	g.
		POST("/events/:id/guests", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.AddGuestRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, ok := ownEvent(ctx, st, params.ID)
			if !ok {
				return
			}
			userId := ctx.GetUint("id")

			qrHash, err := idgen.Generate(ctx, ticketFieldProbe(st, store.FieldQRHash), idgen.QRHashLength, idgen.Alnum)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ticket := models.Ticket{
				Name:          body.Name,
				QRHash:        qrHash,
				EventID:       event.ID,
				AddedByID:     userId,
				PaymentStatus: types.PAYMENT_NOT_APPLICABLE,
			}

			if !event.Priced() {
				if err := st.CreateTicket(ctx, &ticket); err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusCreated, ticket)
				return
			}

			// Priced events sell through the seller's gateway account, so
			// the seller needs billing details on file before inviting.
			seller, err := st.FindUserByID(ctx, userId)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if !seller.ProfileComplete() {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "complete your billing profile before selling tickets"})
				return
			}

			linkID, err := idgen.Generate(ctx, ticketFieldProbe(st, store.FieldPurchaseLink), idgen.PurchaseLinkLength, idgen.URLSafe)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ticket.PurchaseLinkID = &linkID
			ticket.PaymentStatus = types.PAYMENT_PENDING_OWNER_INVITE
			if err := st.CreateTicket(ctx, &ticket); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			charge, err := svc.OpenCharge(ctx, &ticket, event, customerFor(seller), types.PAYMENT_PENDING_OWNER_INVITE)
			if err != nil {
				rollbackTicket(ctx, st, ticket.ID)
				if errors.Is(err, types.ErrGatewayUnavailable) {
					ctx.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}

			ctx.JSON(http.StatusCreated, gin.H{
				"ticket":        ticket,
				"charge_id":     charge.ID,
				"pix_emv_code":  charge.BRCode,
				"purchase_link": fmt.Sprintf("/pay/%s", linkID),
			})
		}).
		POST("/events/:id/purchase", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.PurchaseRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")

			event, err := st.FindEventByID(ctx, params.ID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if !event.AllowPublicPurchase {
				ctx.Status(http.StatusForbidden)
				return
			}

			buyer, err := st.FindUserByID(ctx, userId)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			guestName := body.GuestName
			if guestName == "" {
				guestName = buyer.Username
			}

			// A buyer with a settled ticket gets it back instead of a second one.
			if existing, err := st.FindBuyerTicket(ctx, event.ID, userId, types.HeldStatuses); err == nil {
				ctx.JSON(http.StatusOK, gin.H{"ticket": existing})
				return
			}

			// An unfinished purchase is resumed instead of duplicated.
			if existing, err := st.FindBuyerTicket(ctx, event.ID, userId, types.PendingStatuses); err == nil {
				ctx.JSON(http.StatusOK, gin.H{
					"ticket":       existing,
					"charge_id":    existing.ChargeID,
					"pix_emv_code": existing.PixEMVCode,
				})
				return
			}

			qrHash, err := idgen.Generate(ctx, ticketFieldProbe(st, store.FieldQRHash), idgen.QRHashLength, idgen.Alnum)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ticket := models.Ticket{
				Name:          guestName,
				QRHash:        qrHash,
				EventID:       event.ID,
				AddedByID:     event.CreatedBy,
				PurchasedByID: &userId,
				PaymentStatus: types.PAYMENT_NOT_APPLICABLE,
			}

			if !event.Priced() {
				if err := st.CreateTicket(ctx, &ticket); err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusCreated, ticket)
				return
			}

			if !buyer.ProfileComplete() {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "complete your billing profile before purchasing"})
				return
			}

			ticket.PaymentStatus = types.PAYMENT_PENDING
			if err := st.CreateTicket(ctx, &ticket); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			charge, err := svc.OpenCharge(ctx, &ticket, event, customerFor(buyer), types.PAYMENT_PENDING)
			if err != nil {
				rollbackTicket(ctx, st, ticket.ID)
				if errors.Is(err, types.ErrGatewayUnavailable) {
					ctx.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}

			ctx.JSON(http.StatusCreated, gin.H{
				"ticket":        ticket,
				"charge_id":     charge.ID,
				"pix_emv_code":  charge.BRCode,
				"pix_qr_base64": charge.BRCodeBase64,
			})
		}).
		GET("/tickets/:id/qrcode", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")

			ticket, err := st.FindTicketByID(ctx, params.ID)
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

			filepath, err := lib.RenderQRCode(ticket.QRHash, fmt.Sprintf("ticket-%d", ticket.ID))
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.FileAttachment(filepath, "ticket.png")
		}).
		DELETE("/tickets/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ticket, err := st.FindTicketByID(ctx, params.ID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if _, ok := ownEvent(ctx, st, ticket.EventID); !ok {
				return
			}
			if ticket.PaymentStatus == types.PAYMENT_PAID {
				ctx.JSON(http.StatusConflict, gin.H{"error": "paid tickets cannot be removed"})
				return
			}
			if err := st.DeleteTicket(ctx, ticket.ID); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
