package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"qrpass/src/checkin"
	"qrpass/src/lib"
	"qrpass/src/lib/abacate"
	"qrpass/src/models"
	"qrpass/src/payments"
	"qrpass/src/store"
	"qrpass/src/types"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

const whsecret = "whsec_test"

type fakeGateway struct {
	mu      sync.Mutex
	counter int
	status  string
}

func (g *fakeGateway) CreateCharge(ctx context.Context, req abacate.CreateChargeRequest) (*abacate.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	id := fmt.Sprintf("chg_%d", g.counter)
	return &abacate.Charge{
		ID:           id,
		BRCode:       "000201BR.GOV.BCB.PIX" + id,
		BRCodeBase64: "aVZCT1J3MEtHZ28=",
	}, nil
}

func (g *fakeGateway) QueryStatus(ctx context.Context, chargeID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == "" {
		return abacate.StatusPending, nil
	}
	return g.status, nil
}

type APITestSuite struct {
	suite.Suite
	store     *store.MemoryStore
	gateway   *fakeGateway
	router    *gin.Engine
	redisMock redismock.ClientMock

	host  *models.User
	buyer *models.User
}

// testAuthMiddleware resolves "Bearer test-<id>" against the test store, so
// routes run with the same context keys the production middleware sets.
func (s *APITestSuite) testAuthMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer test-") {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	raw := strings.TrimPrefix(bearerToken, "Bearer test-")
	uid, err := strconv.Atoi(raw)
	if err != nil {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	user, err := s.store.FindUserByID(ctx, uint(uid))
	if err != nil {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ctx.Set("email", user.Email)
	ctx.Set("id", user.ID)
	ctx.Set("username", user.Username)
	ctx.Set("role", user.Role)
}

func (s *APITestSuite) SetupSuite() {
	registerValidations()
}

func (s *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.store = store.NewMemoryStore()
	s.gateway = &fakeGateway{}
	svc := payments.NewService(s.store, s.gateway)
	gate := checkin.NewGate(s.store)

	rdb, mock := redismock.NewClientMock()
	lib.NewRedisClient(rdb)
	s.redisMock = mock

	router := setupRouter()
	webhookRoutes(router, svc, whsecret)
	publicPaymentRoutes(router, svc)
	publicEventRoutes(router, s.store)
	scannerRoutes(router, s.store, gate)

	authorized := router.Group(apiPrefix)
	authorized.Use(s.testAuthMiddleware)
	{
		authorized = eventHandlers(authorized, s.store)
		authorized = ticketHandlers(authorized, s.store, svc)
		authorized = paymentHandlers(authorized, svc)
		authorized = checkinHandlers(authorized, s.store, gate)
	}
	s.router = router

	ctx := context.Background()
	s.host = &models.User{
		Username:  "host",
		Email:     "host@example.com",
		TaxID:     "39053344705",
		Cellphone: "+5511999990000",
	}
	require.NoError(s.T(), s.store.CreateUser(ctx, s.host))
	s.buyer = &models.User{
		Username:  "buyer",
		Email:     "buyer@example.com",
		TaxID:     "52998224725",
		Cellphone: "+5511999991111",
	}
	require.NoError(s.T(), s.store.CreateUser(ctx, s.buyer))
}

func (s *APITestSuite) do(method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer test-%d", user.ID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(whsecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *APITestSuite) postWebhook(body []byte, signature string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", apiPrefix+"/webhooks/abacatepay", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) createEvent(price string) gjson.Result {
	w := s.do("POST", apiPrefix+"/events", types.CreateEventRequestBody{
		Name:                "Launch Party",
		Location:            "Warehouse 9",
		TicketPrice:         price,
		AllowPublicPurchase: true,
	}, s.host)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	return gjson.Parse(w.Body.String())
}

func (s *APITestSuite) inviteGuest(eventID int64, name string) gjson.Result {
	w := s.do("POST", fmt.Sprintf("%s/events/%d/guests", apiPrefix, eventID), types.AddGuestRequestBody{Name: name}, s.host)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	return gjson.Parse(w.Body.String())
}

func (s *APITestSuite) TestPingRoute() {
	w := s.do("GET", "/", nil, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *APITestSuite) TestWebhookSettlesInvite() {
	event := s.createEvent("50.00")
	invite := s.inviteGuest(event.Get("id").Int(), "Ana")
	chargeID := invite.Get("charge_id").String()
	require.NotEmpty(s.T(), chargeID)
	assert.Equal(s.T(), "pending_owner_invite", invite.Get("ticket.payment_status").String())

	body := []byte(fmt.Sprintf(`{"event":"pix_qr_code.paid","data":{"id":"%s","status":"PAID"}}`, chargeID))
	w := s.postWebhook(body, sign(body))
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "outcome").String())

	// Redelivery acknowledges without a second transition.
	w = s.postWebhook(body, sign(body))
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "already_paid", gjson.Get(w.Body.String(), "outcome").String())

	ticket, err := s.store.FindTicketByChargeID(context.Background(), chargeID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), types.PAYMENT_PAID, ticket.PaymentStatus)
	assert.Nil(s.T(), ticket.PixEMVCode)
	assert.Nil(s.T(), ticket.PixQRBase64)
}

func (s *APITestSuite) TestWebhookRejectsTamperedBody() {
	event := s.createEvent("50.00")
	invite := s.inviteGuest(event.Get("id").Int(), "Bea")
	chargeID := invite.Get("charge_id").String()

	body := []byte(fmt.Sprintf(`{"event":"pix_qr_code.paid","data":{"id":"%s"}}`, chargeID))
	signature := sign(body)
	tampered := bytes.Replace(body, []byte("paid"), []byte("pald"), 1)

	w := s.postWebhook(tampered, signature)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	ticket, err := s.store.FindTicketByChargeID(context.Background(), chargeID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), types.PAYMENT_PENDING_OWNER_INVITE, ticket.PaymentStatus)
}

func (s *APITestSuite) TestWebhookMissingSignature() {
	body := []byte(`{"event":"pix_qr_code.paid","data":{"id":"chg_1"}}`)
	w := s.postWebhook(body, "")
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestWebhookIgnoresOtherEvents() {
	event := s.createEvent("50.00")
	invite := s.inviteGuest(event.Get("id").Int(), "Caio")
	chargeID := invite.Get("charge_id").String()

	body := []byte(fmt.Sprintf(`{"event":"billing.paid","data":{"id":"%s"}}`, chargeID))
	w := s.postWebhook(body, sign(body))
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "billing.paid", gjson.Get(w.Body.String(), "ignored").String())

	ticket, err := s.store.FindTicketByChargeID(context.Background(), chargeID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), types.PAYMENT_PENDING_OWNER_INVITE, ticket.PaymentStatus)
}

func (s *APITestSuite) TestWebhookUnknownChargeAcked() {
	body := []byte(`{"event":"pix_qr_code.paid","data":{"id":"chg_unknown"}}`)
	w := s.postWebhook(body, sign(body))
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *APITestSuite) TestWebhookMalformedPayload() {
	body := []byte(`{"event":`)
	w := s.postWebhook(body, sign(body))
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestScannerFlow() {
	event := s.createEvent("")
	partyCode := event.Get("party_code").String()
	require.NotEmpty(s.T(), partyCode)
	s.inviteGuest(event.Get("id").Int(), "Dani")
	ticket, err := s.store.FindTicketByID(context.Background(), 1)
	require.NoError(s.T(), err)

	s.redisMock.Regexp().ExpectSet(`scanner:.+`, `.+`, 30*24*time.Hour).SetVal("OK")
	w := s.do("POST", apiPrefix+"/scanner/bind", types.BindScannerRequestBody{PartyCode: partyCode}, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	token := gjson.Get(w.Body.String(), "scanner_token").String()
	require.NotEmpty(s.T(), token)

	eventID := strconv.FormatInt(event.Get("id").Int(), 10)
	scan := func() *httptest.ResponseRecorder {
		s.redisMock.ExpectGet("scanner:" + token).SetVal(eventID)
		req, _ := http.NewRequest("POST", apiPrefix+"/scanner/scan", bytes.NewReader([]byte(fmt.Sprintf(
			`{"party_code":"%s","qr_hash":"%s"}`, partyCode, ticket.QRHash))))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(scannerTokenHeader, token)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	first := scan()
	require.Equal(s.T(), http.StatusOK, first.Code)
	assert.Equal(s.T(), "new_entry", gjson.Get(first.Body.String(), "reason").String())
	firstTime := gjson.Get(first.Body.String(), "check_in_time").String()
	require.NotEmpty(s.T(), firstTime)

	second := scan()
	require.Equal(s.T(), http.StatusOK, second.Code)
	assert.True(s.T(), gjson.Get(second.Body.String(), "admitted").Bool())
	assert.Equal(s.T(), "already_entered", gjson.Get(second.Body.String(), "reason").String())
	assert.Equal(s.T(), firstTime, gjson.Get(second.Body.String(), "check_in_time").String())
}

func (s *APITestSuite) TestScanUnpaidTicketBlocked() {
	event := s.createEvent("75.00")
	partyCode := event.Get("party_code").String()
	s.inviteGuest(event.Get("id").Int(), "Edu")
	ticket, err := s.store.FindTicketByID(context.Background(), 1)
	require.NoError(s.T(), err)

	s.redisMock.Regexp().ExpectSet(`scanner:.+`, `.+`, 30*24*time.Hour).SetVal("OK")
	w := s.do("POST", apiPrefix+"/scanner/bind", types.BindScannerRequestBody{PartyCode: partyCode}, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	token := gjson.Get(w.Body.String(), "scanner_token").String()

	eventID := strconv.FormatInt(event.Get("id").Int(), 10)
	s.redisMock.ExpectGet("scanner:" + token).SetVal(eventID)
	req, _ := http.NewRequest("POST", apiPrefix+"/scanner/scan", bytes.NewReader([]byte(fmt.Sprintf(
		`{"party_code":"%s","qr_hash":"%s"}`, partyCode, ticket.QRHash))))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(scannerTokenHeader, token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(s.T(), http.StatusForbidden, rec.Code)
	assert.Equal(s.T(), "payment_pending", gjson.Get(rec.Body.String(), "reason").String())
}

func (s *APITestSuite) TestScanWithoutBindingUnauthorized() {
	event := s.createEvent("")
	partyCode := event.Get("party_code").String()
	s.inviteGuest(event.Get("id").Int(), "Fabi")

	req, _ := http.NewRequest("POST", apiPrefix+"/scanner/scan", bytes.NewReader([]byte(fmt.Sprintf(
		`{"party_code":"%s","qr_hash":"whatever"}`, partyCode))))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *APITestSuite) TestManualEntryOverride() {
	event := s.createEvent("75.00")
	invite := s.inviteGuest(event.Get("id").Int(), "Gil")
	ticketID := invite.Get("ticket.id").Int()

	w := s.do("PATCH", fmt.Sprintf("%s/tickets/%d/entry", apiPrefix, ticketID),
		types.ToggleEntryRequestBody{Entered: true}, s.host)
	assert.Equal(s.T(), http.StatusConflict, w.Code)

	w = s.do("PATCH", fmt.Sprintf("%s/tickets/%d/entry", apiPrefix, ticketID),
		types.ToggleEntryRequestBody{Entered: true, OverridePayment: true}, s.host)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.True(s.T(), gjson.Get(w.Body.String(), "entered").Bool())

	var overrides int
	for _, e := range s.store.TrailEntries() {
		if e.Type == types.TRAIL_CHECKIN_OVERRIDE {
			overrides++
		}
	}
	assert.Equal(s.T(), 1, overrides)
}

func (s *APITestSuite) TestManualEntryForbiddenForStranger() {
	event := s.createEvent("")
	invite := s.inviteGuest(event.Get("id").Int(), "Hugo")
	ticketID := invite.Get("id").Int()

	w := s.do("PATCH", fmt.Sprintf("%s/tickets/%d/entry", apiPrefix, ticketID),
		types.ToggleEntryRequestBody{Entered: true}, s.buyer)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *APITestSuite) TestPurchaseFlow() {
	event := s.createEvent("30.00")
	eventID := event.Get("id").Int()

	w := s.do("POST", fmt.Sprintf("%s/events/%d/purchase", apiPrefix, eventID),
		types.PurchaseRequestBody{GuestName: "Iris"}, s.buyer)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	chargeID := gjson.Get(w.Body.String(), "charge_id").String()
	require.NotEmpty(s.T(), chargeID)
	assert.Equal(s.T(), "pending", gjson.Get(w.Body.String(), "ticket.payment_status").String())

	// Retrying before paying resumes the same charge.
	w = s.do("POST", fmt.Sprintf("%s/events/%d/purchase", apiPrefix, eventID),
		types.PurchaseRequestBody{GuestName: "Iris"}, s.buyer)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), chargeID, gjson.Get(w.Body.String(), "charge_id").String())

	body := []byte(fmt.Sprintf(`{"event":"pix_qr_code.paid","data":{"id":"%s"}}`, chargeID))
	resp := s.postWebhook(body, sign(body))
	require.Equal(s.T(), http.StatusOK, resp.Code)

	ticket, err := s.store.FindTicketByChargeID(context.Background(), chargeID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), types.PAYMENT_PAID, ticket.PaymentStatus)

	// Buying again after settling returns the paid ticket, not a new charge.
	w = s.do("POST", fmt.Sprintf("%s/events/%d/purchase", apiPrefix, eventID),
		types.PurchaseRequestBody{GuestName: "Iris"}, s.buyer)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "ticket.payment_status").String())

	tickets, err := s.store.ListEventTickets(context.Background(), uint(eventID))
	require.NoError(s.T(), err)
	assert.Len(s.T(), tickets, 1)
}

func (s *APITestSuite) TestFreePurchaseIsIdempotentPerBuyer() {
	event := s.createEvent("")
	eventID := event.Get("id").Int()

	w := s.do("POST", fmt.Sprintf("%s/events/%d/purchase", apiPrefix, eventID),
		types.PurchaseRequestBody{}, s.buyer)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	ticketID := gjson.Get(w.Body.String(), "id").Uint()
	require.NotZero(s.T(), ticketID)

	w = s.do("POST", fmt.Sprintf("%s/events/%d/purchase", apiPrefix, eventID),
		types.PurchaseRequestBody{}, s.buyer)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), ticketID, gjson.Get(w.Body.String(), "ticket.id").Uint())

	tickets, err := s.store.ListEventTickets(context.Background(), uint(eventID))
	require.NoError(s.T(), err)
	assert.Len(s.T(), tickets, 1)
}

func (s *APITestSuite) TestChargeStatusPollOwnership() {
	event := s.createEvent("30.00")
	eventID := event.Get("id").Int()
	w := s.do("POST", fmt.Sprintf("%s/events/%d/purchase", apiPrefix, eventID),
		types.PurchaseRequestBody{GuestName: "Joca"}, s.buyer)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	chargeID := gjson.Get(w.Body.String(), "charge_id").String()

	// A third party cannot poll someone else's charge.
	stranger := &models.User{Username: "stranger", Email: "x@example.com"}
	require.NoError(s.T(), s.store.CreateUser(context.Background(), stranger))
	w = s.do("GET", fmt.Sprintf("%s/charges/%s/status", apiPrefix, chargeID), nil, stranger)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)

	s.gateway.status = abacate.StatusPaid
	w = s.do("GET", fmt.Sprintf("%s/charges/%s/status", apiPrefix, chargeID), nil, s.buyer)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "outcome").String())

	// Poll and webhook converge on the same settled state.
	body := []byte(fmt.Sprintf(`{"event":"pix_qr_code.paid","data":{"id":"%s"}}`, chargeID))
	resp := s.postWebhook(body, sign(body))
	require.Equal(s.T(), http.StatusOK, resp.Code)
	assert.Equal(s.T(), "already_paid", gjson.Get(resp.Body.String(), "outcome").String())
}

func (s *APITestSuite) TestPublicPaymentPage() {
	event := s.createEvent("45.00")
	invite := s.inviteGuest(event.Get("id").Int(), "Kaua")
	link := invite.Get("purchase_link").String()
	require.True(s.T(), strings.HasPrefix(link, "/pay/"))

	w := s.do("GET", apiPrefix+link, nil, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "pending_owner_invite", gjson.Get(w.Body.String(), "payment_status").String())
	assert.NotEmpty(s.T(), gjson.Get(w.Body.String(), "pix_emv_code").String())

	chargeID := invite.Get("charge_id").String()
	body := []byte(fmt.Sprintf(`{"event":"pix_qr_code.paid","data":{"id":"%s"}}`, chargeID))
	resp := s.postWebhook(body, sign(body))
	require.Equal(s.T(), http.StatusOK, resp.Code)

	// Once paid the page hands over the entry code instead of the charge.
	w = s.do("GET", apiPrefix+link, nil, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "payment_status").String())
	assert.NotEmpty(s.T(), gjson.Get(w.Body.String(), "qr_hash").String())
}

func (s *APITestSuite) TestPublicPaymentPageRegeneratesExpiredCharge() {
	event := s.createEvent("45.00")
	invite := s.inviteGuest(event.Get("id").Int(), "Leda")
	link := invite.Get("purchase_link").String()
	chargeID := invite.Get("charge_id").String()

	won, err := s.store.MarkFailed(context.Background(), chargeID)
	require.NoError(s.T(), err)
	require.True(s.T(), won)

	// Opening the page after expiry replaces the dead charge with a new one.
	w := s.do("GET", apiPrefix+link, nil, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "pending_owner_invite", gjson.Get(w.Body.String(), "payment_status").String())
	assert.NotEmpty(s.T(), gjson.Get(w.Body.String(), "pix_emv_code").String())

	ticket, err := s.store.FindTicketByID(context.Background(), uint(invite.Get("ticket.id").Uint()))
	require.NoError(s.T(), err)
	require.NotNil(s.T(), ticket.ChargeID)
	assert.NotEqual(s.T(), chargeID, *ticket.ChargeID)
}

func (s *APITestSuite) TestPublicPaymentCheckReportsPaid() {
	event := s.createEvent("45.00")
	invite := s.inviteGuest(event.Get("id").Int(), "Lia")
	link := invite.Get("purchase_link").String()

	s.gateway.status = abacate.StatusPaid
	w := s.do("POST", apiPrefix+link+"/check", nil, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "payment_status").String())
	assert.NotEmpty(s.T(), gjson.Get(w.Body.String(), "qr_hash").String())
}

func (s *APITestSuite) TestEventStats() {
	event := s.createEvent("20.00")
	eventID := event.Get("id").Int()
	inv1 := s.inviteGuest(eventID, "Mara")
	s.inviteGuest(eventID, "Nino")

	chargeID := inv1.Get("charge_id").String()
	body := []byte(fmt.Sprintf(`{"event":"pix_qr_code.paid","data":{"id":"%s"}}`, chargeID))
	resp := s.postWebhook(body, sign(body))
	require.Equal(s.T(), http.StatusOK, resp.Code)

	w := s.do("GET", fmt.Sprintf("%s/events/%d/stats", apiPrefix, eventID), nil, s.host)
	require.Equal(s.T(), http.StatusOK, w.Code)
	stats := gjson.Parse(w.Body.String())
	assert.EqualValues(s.T(), 2, stats.Get("total_invited").Int())
	assert.EqualValues(s.T(), 1, stats.Get("total_paid_tickets").Int())
	assert.Equal(s.T(), "20", stats.Get("total_revenue").String())
}

func (s *APITestSuite) TestPublicEventPageHidesGuestCount() {
	event := s.createEvent("")
	shareLink := event.Get("share_link_id").String()
	require.NotEmpty(s.T(), shareLink)
	s.inviteGuest(event.Get("id").Int(), "Otto")

	w := s.do("GET", apiPrefix+"/p/"+shareLink, nil, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.True(s.T(), gjson.Get(w.Body.String(), "guest_count").Exists())

	hide := false
	patch := s.do("PATCH", fmt.Sprintf("%s/events/%d", apiPrefix, event.Get("id").Int()),
		types.UpdateEventRequestBody{ShowGuestCount: &hide}, s.host)
	require.Equal(s.T(), http.StatusOK, patch.Code)

	w = s.do("GET", apiPrefix+"/p/"+shareLink, nil, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.False(s.T(), gjson.Get(w.Body.String(), "guest_count").Exists())
}

func (s *APITestSuite) TestEventRejectsNegativePrice() {
	w := s.do("POST", apiPrefix+"/events", types.CreateEventRequestBody{
		Name:        "Bad Event",
		TicketPrice: "-5.00",
	}, s.host)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = s.do("POST", apiPrefix+"/events", types.CreateEventRequestBody{
		Name:        "Bad Event",
		TicketPrice: "a lot",
	}, s.host)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestDeleteTicketGuards() {
	event := s.createEvent("20.00")
	invite := s.inviteGuest(event.Get("id").Int(), "Pipa")
	ticketID := invite.Get("ticket.id").Int()
	chargeID := invite.Get("charge_id").String()

	body := []byte(fmt.Sprintf(`{"event":"pix_qr_code.paid","data":{"id":"%s"}}`, chargeID))
	resp := s.postWebhook(body, sign(body))
	require.Equal(s.T(), http.StatusOK, resp.Code)

	w := s.do("DELETE", fmt.Sprintf("%s/tickets/%d", apiPrefix, ticketID), nil, s.host)
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
