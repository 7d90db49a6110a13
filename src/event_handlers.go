package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"qrpass/src/config"
	"qrpass/src/idgen"
	"qrpass/src/models"
	"qrpass/src/store"
	"qrpass/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

// ownEvent loads an event and enforces that the caller created it.
func ownEvent(ctx *gin.Context, st store.TicketStore, eventID uint) (*models.Event, bool) {
	event, err := st.FindEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			ctx.Status(http.StatusNotFound)
			return nil, false
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if event.CreatedBy != ctx.GetUint("id") {
		ctx.Status(http.StatusForbidden)
		return nil, false
	}
	return event, true
}

func parsePrice(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if price.IsNegative() {
		return decimal.Zero, errors.New("price cannot be negative")
	}
	return price, nil
}

func eventFieldProbe(st store.TicketStore, field string) idgen.TakenFunc {
	return func(ctx context.Context, value string) (bool, error) {
		return st.EventFieldTaken(ctx, field, value)
	}
}

func eventHandlers(g *gin.RouterGroup, st store.TicketStore) *gin.RouterGroup {
	g.
		POST("/events", func(ctx *gin.Context) {
			var body types.CreateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			price, err := parsePrice(body.TicketPrice)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			event := models.Event{
				Name:                body.Name,
				Location:            body.Location,
				TicketPrice:         price,
				AllowPublicPurchase: body.AllowPublicPurchase,
				ShowGuestCount:      true,
				CreatedBy:           ctx.GetUint("id"),
			}
			if body.DateTime != nil {
				dt, err := time.Parse(config.TIME_PARSE_FORMAT, *body.DateTime)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_time"})
					return
				}
				event.DateTime = &dt
			}

			base := slug.Make(body.Name)
			event.Slug = base
			if taken, err := st.EventFieldTaken(ctx, store.FieldSlug, base); err == nil && taken {
				suffix, err := idgen.Random(4, idgen.Upper)
				if err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				event.Slug = base + "-" + suffix
			}

			event.PartyCode, err = idgen.Generate(ctx, eventFieldProbe(st, store.FieldPartyCode), idgen.PartyCodeLength, idgen.Upper)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			event.ShareLinkID, err = idgen.Generate(ctx, eventFieldProbe(st, store.FieldShareLink), idgen.ShareLinkLength, idgen.URLSafe)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			if err := st.CreateEvent(ctx, &event); err != nil {
				if errors.Is(err, types.ErrConflict) {
					ctx.JSON(http.StatusConflict, gin.H{"error": "event already exists"})
					return
				}
				log.Printf("Error creating event: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, event)
		}).
		GET("/events", func(ctx *gin.Context) {
			events, err := st.ListEventsByCreator(ctx, ctx.GetUint("id"))
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"events": events})
		}).
		GET("/events/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			event, ok := ownEvent(ctx, st, params.ID)
			if !ok {
				return
			}
			tickets, err := st.ListEventTickets(ctx, event.ID)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"event": event, "tickets": tickets})
		}).
		PATCH("/events/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			event, ok := ownEvent(ctx, st, params.ID)
			if !ok {
				return
			}

			if body.Name != nil {
				event.Name = *body.Name
			}
			if body.TicketPrice != nil {
				price, err := parsePrice(*body.TicketPrice)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				event.TicketPrice = price
			}
			if body.AllowPublicPurchase != nil {
				event.AllowPublicPurchase = *body.AllowPublicPurchase
			}
			if body.ShowGuestCount != nil {
				event.ShowGuestCount = *body.ShowGuestCount
			}

			if err := st.SaveEvent(ctx, event); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, event)
		}).
		GET("/events/:id/stats", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			event, ok := ownEvent(ctx, st, params.ID)
			if !ok {
				return
			}
			stats, err := st.EventStats(ctx, event.ID)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, stats)
		})
	return g
}

// publicEventRoutes serves the share-link event page. Guest counts are
// withheld when the host opted out.
func publicEventRoutes(g *gin.Engine, st store.TicketStore) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.GET("/p/:shareLinkId", func(ctx *gin.Context) {
		event, err := st.FindEventByShareLink(ctx, ctx.Param("shareLinkId"))
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp := gin.H{
			"name":                  event.Name,
			"location":              event.Location,
			"date_time":             event.DateTime,
			"ticket_price":          event.TicketPrice,
			"allow_public_purchase": event.AllowPublicPurchase,
			"share_link_id":         event.ShareLinkID,
		}
		if event.ShowGuestCount {
			stats, err := st.EventStats(ctx, event.ID)
			if err == nil {
				resp["guest_count"] = stats.TotalInvited
			}
		}
		ctx.JSON(http.StatusOK, resp)
	})
	return apiv1
}
