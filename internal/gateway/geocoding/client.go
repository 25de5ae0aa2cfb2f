// Package geocoding resolves delivery addresses to coordinates over gRPC.
package geocoding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"service-dispatch/internal/domain"
)

// GeocodeMethod is the full gRPC method name of the geocoding call.
const GeocodeMethod = "/geocoding.v1.GeocodingService/Geocode"

// ErrNoCoordinates is returned when the geocoder answers without a usable coordinate.
var ErrNoCoordinates = errors.New("geocoder returned no coordinates")

// Dial opens a plaintext client connection to the geocoder.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("geocoding gateway: dial %s: %w", addr, err)
	}
	return conn, nil
}

// GRPCGateway is a geocoder backed by gRPC. Messages are carried as structpb.Struct:
// request {"address"}, response {"latitude", "longitude"}.
type GRPCGateway struct {
	conn grpc.ClientConnInterface
}

// NewGRPCGateway creates a geocoding gateway backed by gRPC.
func NewGRPCGateway(conn grpc.ClientConnInterface) *GRPCGateway {
	if conn == nil {
		return nil
	}
	return &GRPCGateway{conn: conn}
}

// Geocode resolves address.
func (g *GRPCGateway) Geocode(ctx context.Context, address string) (domain.Location, error) {
	req, err := structpb.NewStruct(map[string]any{"address": address})
	if err != nil {
		return domain.Location{}, fmt.Errorf("geocoding gateway: build request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, GeocodeMethod, req, resp); err != nil {
		return domain.Location{}, fmt.Errorf("geocoding gateway: Geocode: %w", err)
	}
	return mapLocation(resp)
}

func mapLocation(s *structpb.Struct) (domain.Location, error) {
	fields := s.GetFields()
	lat, okLat := fields["latitude"].GetKind().(*structpb.Value_NumberValue)
	lng, okLng := fields["longitude"].GetKind().(*structpb.Value_NumberValue)
	if !okLat || !okLng {
		return domain.Location{}, ErrNoCoordinates
	}
	loc := domain.Location{Lat: lat.NumberValue, Lng: lng.NumberValue}
	if !loc.Valid() {
		return domain.Location{}, fmt.Errorf("geocoding gateway: coordinate out of range: %v", loc)
	}
	return loc, nil
}
