package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"qrpass/src/checkin"
	"qrpass/src/idgen"
	"qrpass/src/lib"
	"qrpass/src/store"
	"qrpass/src/types"

	"github.com/gin-gonic/gin"
)

const scannerTokenHeader = "X-Scanner-Token"

// scannerRoutes are the unauthenticated kiosk endpoints. A kiosk pairs
// with an event through its party code and scans with the issued token.
func scannerRoutes(g *gin.Engine, st store.TicketStore, gate *checkin.Gate) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		POST("/scanner/bind", func(ctx *gin.Context) {
			var body types.BindScannerRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, err := st.FindEventByPartyCode(ctx, body.PartyCode)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			token, err := idgen.Random(idgen.ShareLinkLength, idgen.URLSafe)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if err := lib.BindScanner(ctx, token, event.ID); err != nil {
				log.Printf("Error binding scanner to event %d: %s\n", event.ID, err.Error())
				ctx.Status(http.StatusServiceUnavailable)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"scanner_token": token,
				"event_id":      event.ID,
				"event_name":    event.Name,
			})
		}).
		POST("/scanner/scan", func(ctx *gin.Context) {
			var body types.ScanRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			token := ctx.GetHeader(scannerTokenHeader)
			if token == "" {
				ctx.Status(http.StatusUnauthorized)
				return
			}
			boundEventID, err := lib.BoundEvent(ctx, token)
			if err != nil {
				log.Printf("Error resolving scanner binding: %s\n", err.Error())
				ctx.Status(http.StatusServiceUnavailable)
				return
			}
			if boundEventID == 0 {
				ctx.Status(http.StatusUnauthorized)
				return
			}

			event, err := st.FindEventByPartyCode(ctx, body.PartyCode)
			if err != nil || event.ID != boundEventID {
				ctx.Status(http.StatusForbidden)
				return
			}

			result, err := gate.Scan(ctx, event.ID, body.QRHash, fmt.Sprintf("scanner:%s", token[:8]))
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "unknown code"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			status := http.StatusOK
			if result.Reason == checkin.ReasonPaymentPending {
				status = http.StatusForbidden
			}
			ctx.JSON(status, result)
		})
	return apiv1
}

// checkinHandlers is the staff-side manual entry toggle.
func checkinHandlers(g *gin.RouterGroup, st store.TicketStore, gate *checkin.Gate) *gin.RouterGroup {
	g.
		PATCH("/tickets/:id/entry", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ToggleEntryRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			username := ctx.GetString("username")

			ticket, err := st.FindTicketByID(ctx, params.ID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if ticket.Event.CreatedBy != userId {
				ctx.Status(http.StatusForbidden)
				return
			}

			updated, err := gate.SetEntered(ctx, ticket.ID, body.Entered, body.OverridePayment, username)
			if err != nil {
				if errors.Is(err, types.ErrInvalidState) {
					ctx.JSON(http.StatusConflict, gin.H{"error": "ticket is not paid"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, updated)
		})
	return g
}
