package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"coinboard-api/internal/svc"
	"coinboard-api/pkg/market"
)

// MarketRequest carries the pipeline arguments for one dashboard interaction.
// All state is explicit; nothing is read from ambient globals.
type MarketRequest struct {
	Asset string `path:"asset"`
	Days  int    `form:"days,default=30"`
	Kind  string `form:"kind,default=market_chart"`
	MA    int    `form:"ma,optional"`
	RSI   int    `form:"rsi,optional"`
	EMA   int    `form:"ema,optional"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MarketSnapshotHandler serves the normalized snapshot with any requested
// derived series as JSON.
func MarketSnapshotHandler(serverCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fetchSnapshot(serverCtx, w, r)
		if snap == nil || err != nil {
			return
		}
		httpx.OkJsonCtx(r.Context(), w, snap)
	}
}

// MarketCSVHandler serves the snapshot as a CSV download.
func MarketCSVHandler(serverCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fetchSnapshot(serverCtx, w, r)
		if snap == nil || err != nil {
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s_%dd_%s.csv", snap.AssetID, snap.WindowDays, snap.Kind))
		if err := snap.WriteCSV(w); err != nil {
			logx.WithContext(r.Context()).Errorf("csv export asset=%s err=%v", snap.AssetID, err)
		}
	}
}

// fetchSnapshot runs the pipeline for one request and writes the tagged error
// response on failure. A nil snapshot means the response is already written.
func fetchSnapshot(serverCtx *svc.ServiceContext, w http.ResponseWriter, r *http.Request) (*market.Snapshot, error) {
	var req MarketRequest
	if err := httpx.Parse(r, &req); err != nil {
		httpx.WriteJsonCtx(r.Context(), w, http.StatusBadRequest, errorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
		return nil, err
	}

	snap, err := serverCtx.DefaultMarket.Snapshot(r.Context(), req.Asset, req.Days, market.Kind(req.Kind))
	if err != nil {
		writeMarketError(w, r, err)
		return nil, err
	}

	if req.MA > 0 {
		snap = snap.WithMovingAverage(req.MA)
	}
	if req.RSI > 0 {
		snap = snap.WithRSI(req.RSI)
	}
	if req.EMA > 0 {
		snap = snap.WithEMA(req.EMA)
	}
	return snap, nil
}

// writeMarketError maps the pipeline error taxonomy onto HTTP responses so
// dashboards can distinguish "provider is down" from "bad request". Nothing
// here ever panics the process.
func writeMarketError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, market.ErrInvalidWindow):
		httpx.WriteJsonCtx(ctx, w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_window",
			Message: err.Error(),
		})
	case errors.Is(err, market.ErrMalformedPayload):
		logx.WithContext(ctx).Errorf("malformed provider payload: %v", err)
		httpx.WriteJsonCtx(ctx, w, http.StatusBadGateway, errorResponse{
			Error:   "malformed_payload",
			Message: err.Error(),
		})
	case errors.Is(err, market.ErrDataUnavailable):
		logx.WithContext(ctx).Errorf("provider unavailable: %v", err)
		httpx.WriteJsonCtx(ctx, w, http.StatusBadGateway, errorResponse{
			Error:   "data_unavailable",
			Message: err.Error(),
		})
	default:
		httpx.WriteJsonCtx(ctx, w, http.StatusBadRequest, errorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
	}
}
