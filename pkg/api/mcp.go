package api

import (
	"errors"
	"log/slog"

	"github.com/hazyhaar/postal-codes/pkg/kit"
	"github.com/hazyhaar/postal-codes/pkg/loader"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const defaultCountry = "US"

// RegisterMCPTools registers the postal code MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, l *loader.Loader, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	eps := newEndpoints(l, func(name string) kit.Middleware {
		return kit.Logging(logger, name)
	})

	countryArg := mcp.WithString("country", mcp.Description("ISO country code (US or CA). Defaults to US."))

	kit.RegisterMCPTool(srv, mcp.NewTool("lookup_postal_code",
		mcp.WithDescription("Look up the place name, admin areas and coordinates of a postal code."),
		countryArg,
		mcp.WithString("code", mcp.Required(), mcp.Description("Postal code, e.g. 93109 or K1A 0B1")),
	), eps.lookup, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		code, err := req.RequireString("code")
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &lookupReq{
			Country: req.GetString("country", defaultCountry),
			Code:    code,
		}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("postal_code_distance",
		mcp.WithDescription("Great-circle distance between two postal codes of the same country, in meters, kilometers and miles."),
		countryArg,
		mcp.WithString("start", mcp.Required(), mcp.Description("First postal code")),
		mcp.WithString("end", mcp.Required(), mcp.Description("Second postal code")),
	), eps.distance, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		start, err1 := req.RequireString("start")
		end, err2 := req.RequireString("end")
		if err := errors.Join(err1, err2); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &distanceReq{
			Country: req.GetString("country", defaultCountry),
			Start:   start,
			End:     end,
		}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("random_postal_code",
		mcp.WithDescription("Pick a postal code. The same seed always picks the same code; the seed used is returned."),
		countryArg,
		mcp.WithString("seed", mcp.Description("Seed for a reproducible pick. Random when omitted.")),
	), eps.random, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &randomReq{
			Country: req.GetString("country", defaultCountry),
			Seed:    req.GetString("seed", ""),
		}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("list_countries",
		mcp.WithDescription("List supported countries, their data source and how many records are cached."),
	), eps.countries, func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	})
}
