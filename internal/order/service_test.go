package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/quangngluu/backend-pos/internal/catalog"
	"github.com/quangngluu/backend-pos/internal/notify"
	"github.com/quangngluu/backend-pos/internal/order"
	"github.com/quangngluu/backend-pos/internal/promo"
	"github.com/quangngluu/backend-pos/internal/quote"
	"github.com/quangngluu/backend-pos/internal/repo"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type fakePromos struct {
	promos map[string]*promo.Promotion
}

func (f *fakePromos) Resolve(_ context.Context, code string) (*promo.Promotion, error) {
	if p, ok := f.promos[code]; ok {
		return p, nil
	}
	return nil, promo.ErrNotFound
}

type fakeCatalog struct {
	snap *catalog.Snapshot
}

func (f *fakeCatalog) Snapshot(context.Context, []uuid.UUID) (*catalog.Snapshot, error) {
	return f.snap, nil
}

type fakeStore struct {
	order repo.OrderRecord
	lines []repo.OrderLineRecord
	calls int
}

func (f *fakeStore) Create(_ context.Context, o repo.OrderRecord, lines []repo.OrderLineRecord) error {
	f.calls++
	f.order = o
	f.lines = lines
	return nil
}

type fakeReceipts struct {
	payloads []notify.ReceiptPayload
}

func (f *fakeReceipts) EnqueueOrderReceipt(_ context.Context, p notify.ReceiptPayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}

var (
	drinkID = uuid.New()
	cakeID  = uuid.New()
	ghostID = uuid.New()
)

func newService() (*order.Service, *fakeStore, *fakeReceipts) {
	upsize := &promo.Promotion{
		ID:       uuid.New(),
		Code:     "PHE_LEN_LA",
		Kind:     promo.KindRule,
		MinQty:   5,
		IsActive: true,
	}
	store := &fakeStore{}
	receipts := &fakeReceipts{}
	svc := &order.Service{
		Promos: &fakePromos{promos: map[string]*promo.Promotion{upsize.Code: upsize}},
		Catalog: &fakeCatalog{snap: &catalog.Snapshot{
			Names: map[uuid.UUID]string{
				drinkID: "Cà phê sữa",
				cakeID:  "Bánh bông lan",
			},
			Categories: map[uuid.UUID]catalog.Category{
				drinkID: catalog.CategoryDrink,
				cakeID:  catalog.CategoryCake,
			},
			VariantPrices: []repo.VariantPriceRow{
				{ProductID: drinkID, SizeKey: "PHE", UnitPrice: 54000},
				{ProductID: drinkID, SizeKey: "LA", UnitPrice: 69000},
			},
			LegacyPrices: []repo.LegacyPriceRow{
				{ProductID: cakeID, PriceKey: "Price", UnitPrice: 35000},
			},
		}},
		Orders:   store,
		Receipts: receipts,
		Currency: "VND",
		Now:      func() time.Time { return testNow },
		Log:      zerolog.Nop(),
	}
	return svc, store, receipts
}

func TestComputeQuoteWithUpsizePromo(t *testing.T) {
	svc, _, _ := newService()

	result, err := svc.ComputeQuote(context.Background(), order.QuoteRequest{
		PromoCode: "PHE_LEN_LA",
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: drinkID.String(), Quantity: 5, SizeKey: "PHE"},
		},
	})
	require.NoError(t, err)
	require.True(t, result.UpsizeApplied)
	require.Equal(t, quote.SizeLa, result.Lines[0].DisplaySize)
	require.Equal(t, quote.SizePhe, result.Lines[0].ChargedSize)
	require.Equal(t, int64(270000), result.GrandTotal)
}

func TestComputeQuoteUnknownPromo(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.ComputeQuote(context.Background(), order.QuoteRequest{
		PromoCode: "NOPE",
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: drinkID.String(), Quantity: 1, SizeKey: "PHE"},
		},
	})
	require.ErrorIs(t, err, promo.ErrNotFound)
}

func TestComputeQuoteLineProblems(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.ComputeQuote(context.Background(), order.QuoteRequest{
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: "not-a-uuid", Quantity: 1, SizeKey: "PHE"},
			{LineID: "l2", ProductID: drinkID.String(), Quantity: 1, SizeKey: "MEGA"},
			{LineID: "l2", ProductID: drinkID.String(), Quantity: 1, SizeKey: "PHE"},
		},
	})
	var reqErr *order.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Len(t, reqErr.Lines, 3)
	require.Equal(t, "product_id", reqErr.Lines[0].Field)
	require.Equal(t, "size_key", reqErr.Lines[1].Field)
	require.Equal(t, "line_id", reqErr.Lines[2].Field)
}

func TestCreateOrderPersistsSnapshotAndEnqueuesReceipt(t *testing.T) {
	svc, store, receipts := newService()

	confirmation, err := svc.CreateOrder(context.Background(), order.QuoteRequest{
		PromoCode: "PHE_LEN_LA",
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: drinkID.String(), Quantity: 5, SizeKey: "PHE"},
			{LineID: "l2", ProductID: cakeID.String(), Quantity: 1, SizeKey: "STANDARD"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, confirmation.OrderID)
	require.Equal(t, 1, store.calls)

	require.Equal(t, "VND", store.order.Currency)
	require.Equal(t, testNow, store.order.CreatedAt)
	require.NotNil(t, store.order.PromoCode)
	require.Equal(t, "PHE_LEN_LA", *store.order.PromoCode)
	require.Equal(t, int64(380000), store.order.SubtotalBefore)
	require.Equal(t, int64(75000), store.order.DiscountTotal)
	require.Equal(t, int64(305000), store.order.GrandTotal)

	require.Len(t, store.lines, 2)
	require.Equal(t, "LA", store.lines[0].DisplaySize)
	require.Equal(t, "PHE", store.lines[0].ChargedSize)
	require.Equal(t, int64(69000), store.lines[0].UnitPriceBefore)
	require.Equal(t, int64(54000), store.lines[0].UnitPriceAfter)

	require.Len(t, receipts.payloads, 1)
	receipt := receipts.payloads[0]
	require.Equal(t, confirmation.OrderID, receipt.OrderID)
	require.Equal(t, "Cà phê sữa", receipt.Lines[0].ProductName)
	require.Equal(t, "LA", receipt.Lines[0].DisplaySize)
	require.Equal(t, "PHE", receipt.Lines[0].ChargedSize)
}

func TestCreateOrderRejectsMissingPrice(t *testing.T) {
	svc, store, receipts := newService()

	_, err := svc.CreateOrder(context.Background(), order.QuoteRequest{
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: drinkID.String(), Quantity: 1, SizeKey: "PHE"},
			{LineID: "l2", ProductID: ghostID.String(), Quantity: 1, SizeKey: "STANDARD"},
		},
	})
	var missing *order.MissingPriceError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []string{"l2"}, missing.LineIDs)
	require.Zero(t, store.calls, "nothing may be written for a rejected order")
	require.Empty(t, receipts.payloads)
}

func postJSON(t *testing.T, handlerFn http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handlerFn(rec, req)
	return rec
}

func TestHandlerQuote(t *testing.T) {
	svc, _, _ := newService()
	handler := &order.Handler{Service: svc, Validate: validator.New()}

	rec := postJSON(t, handler.Quote, order.QuoteRequest{
		PromoCode: "PHE_LEN_LA",
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: drinkID.String(), Quantity: 5, SizeKey: "PHE"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result quote.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, int64(270000), result.GrandTotal)
}

func TestHandlerQuoteErrors(t *testing.T) {
	svc, _, _ := newService()
	handler := &order.Handler{Service: svc, Validate: validator.New()}

	rec := postJSON(t, handler.Quote, order.QuoteRequest{
		PromoCode: "NOPE",
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: drinkID.String(), Quantity: 1, SizeKey: "PHE"},
		},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, handler.Quote, order.QuoteRequest{Lines: []order.LineRequest{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, handler.Quote, order.QuoteRequest{
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: "garbage", Quantity: 1, SizeKey: "PHE"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_LINES")
}

func TestHandlerCreateMissingPrice(t *testing.T) {
	svc, _, _ := newService()
	handler := &order.Handler{Service: svc, Validate: validator.New()}

	rec := postJSON(t, handler.Create, order.QuoteRequest{
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: ghostID.String(), Quantity: 1, SizeKey: "STANDARD"},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "MISSING_PRICE")
	require.Contains(t, rec.Body.String(), "l1")
}

func TestHandlerCreateSuccess(t *testing.T) {
	svc, store, _ := newService()
	handler := &order.Handler{Service: svc, Validate: validator.New()}

	rec := postJSON(t, handler.Create, order.QuoteRequest{
		Lines: []order.LineRequest{
			{LineID: "l1", ProductID: cakeID.String(), Quantity: 2, SizeKey: "STANDARD"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, store.calls)

	var confirmation order.Confirmation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirmation))
	require.Equal(t, int64(70000), confirmation.Quote.GrandTotal)
}
