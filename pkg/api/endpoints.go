package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/postal-codes/pkg/geo"
	"github.com/hazyhaar/postal-codes/pkg/kit"
	"github.com/hazyhaar/postal-codes/pkg/loader"
)

// ErrUnknownCode means the country loaded but has no such postal code.
var ErrUnknownCode = errors.New("unknown postal code")

// Shared request/response types used by both HTTP and MCP transports.

type lookupReq struct {
	Country string
	Code    string
}

type distanceReq struct {
	Country string
	Start   string
	End     string
}

type randomReq struct {
	Country string
	Seed    string
}

type distanceResponse struct {
	Start      geo.Record `json:"start"`
	End        geo.Record `json:"end"`
	Distance   float64    `json:"distance"`
	Kilometers float64    `json:"km"`
	Miles      float64    `json:"miles"`
}

type randomResponse struct {
	Seed   string     `json:"seed"`
	Record geo.Record `json:"record"`
}

type countryInfo struct {
	Code      string `json:"code"`
	SourceURL string `json:"source_url"`
	Cached    bool   `json:"cached"`
	Records   int    `json:"records"`
}

type countriesResponse struct {
	Countries []countryInfo `json:"countries"`
}

// endpoints are the transport-agnostic actions served over HTTP and MCP.
type endpoints struct {
	lookup    kit.Endpoint
	distance  kit.Endpoint
	random    kit.Endpoint
	countries kit.Endpoint
}

func newEndpoints(l *loader.Loader, mw func(name string) kit.Middleware) endpoints {
	return endpoints{
		lookup:    mw("lookup")(lookupEndpoint(l)),
		distance:  mw("distance")(distanceEndpoint(l)),
		random:    mw("random")(randomEndpoint(l)),
		countries: mw("countries")(countriesEndpoint(l)),
	}
}

func lookupEndpoint(l *loader.Loader) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*lookupReq)
		snap, err := l.Load(ctx, req.Country)
		if err != nil {
			return nil, err
		}
		return find(snap, req.Code)
	}
}

func distanceEndpoint(l *loader.Loader) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*distanceReq)
		snap, err := l.Load(ctx, req.Country)
		if err != nil {
			return nil, err
		}
		start, err := find(snap, req.Start)
		if err != nil {
			return nil, err
		}
		end, err := find(snap, req.End)
		if err != nil {
			return nil, err
		}
		m := geo.Distance(start.Point(), end.Point())
		return distanceResponse{
			Start:      start,
			End:        end,
			Distance:   m,
			Kilometers: geo.Kilometers(m),
			Miles:      geo.Miles(m),
		}, nil
	}
}

func randomEndpoint(l *loader.Loader) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*randomReq)
		snap, err := l.Load(ctx, req.Country)
		if err != nil {
			return nil, err
		}
		rec, seed, ok := snap.Pick(req.Seed)
		if !ok {
			return nil, fmt.Errorf("%s: %w", snap.Country(), loader.ErrNoData)
		}
		return randomResponse{Seed: seed, Record: rec}, nil
	}
}

func countriesEndpoint(l *loader.Loader) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		reg := l.Registry()
		resp := countriesResponse{Countries: make([]countryInfo, 0, reg.Len())}
		for _, code := range reg.Codes() {
			params, _ := reg.Get(code)
			info := countryInfo{Code: code, SourceURL: params.SourceURL}
			if snap, ok := l.Cached(code); ok {
				info.Cached = true
				info.Records = snap.Len()
			}
			resp.Countries = append(resp.Countries, info)
		}
		return resp, nil
	}
}

func find(snap *loader.Snapshot, code string) (geo.Record, error) {
	rec, ok := snap.Get(code)
	if !ok {
		return geo.Record{}, fmt.Errorf("%s %q: %w", snap.Country(), code, ErrUnknownCode)
	}
	return rec, nil
}
