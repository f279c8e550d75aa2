// Package connect provides Connect RPC service implementations.
//
// Messages are google.protobuf.Struct / google.protobuf.Empty so the services
// can be served and called without generated stubs.
package connect

import (
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// CardServiceName is the fully-qualified name of the card service.
	CardServiceName = "wishcard.v1.CardService"
	// AdminServiceName is the fully-qualified name of the admin service.
	AdminServiceName = "wishcard.v1.AdminService"
)

// Procedure paths.
const (
	CardServiceGetStateProcedure     = "/wishcard.v1.CardService/GetState"
	CardServiceTriggerProcedure      = "/wishcard.v1.CardService/Trigger"
	CardServiceBlowCandleProcedure   = "/wishcard.v1.CardService/BlowCandle"
	CardServiceSetMusicModeProcedure = "/wishcard.v1.CardService/SetMusicMode"
	CardServiceSubscribeProcedure    = "/wishcard.v1.CardService/Subscribe"

	AdminServiceForceStageProcedure = "/wishcard.v1.AdminService/ForceStage"
	AdminServiceResetProcedure      = "/wishcard.v1.AdminService/Reset"
)

// NewCardServiceHandler builds an HTTP handler for the card service. It returns
// the path on which to mount the handler and the handler itself.
func NewCardServiceHandler(svc *CardService, opts ...connect.HandlerOption) (string, http.Handler) {
	getState := connect.NewUnaryHandler(CardServiceGetStateProcedure, svc.GetState, opts...)
	trigger := connect.NewUnaryHandler(CardServiceTriggerProcedure, svc.Trigger, opts...)
	blowCandle := connect.NewUnaryHandler(CardServiceBlowCandleProcedure, svc.BlowCandle, opts...)
	setMusicMode := connect.NewUnaryHandler(CardServiceSetMusicModeProcedure, svc.SetMusicMode, opts...)
	subscribe := connect.NewServerStreamHandler(CardServiceSubscribeProcedure, svc.Subscribe, opts...)

	return "/" + CardServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CardServiceGetStateProcedure:
			getState.ServeHTTP(w, r)
		case CardServiceTriggerProcedure:
			trigger.ServeHTTP(w, r)
		case CardServiceBlowCandleProcedure:
			blowCandle.ServeHTTP(w, r)
		case CardServiceSetMusicModeProcedure:
			setMusicMode.ServeHTTP(w, r)
		case CardServiceSubscribeProcedure:
			subscribe.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// NewAdminServiceHandler builds an HTTP handler for the admin service.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	forceStage := connect.NewUnaryHandler(AdminServiceForceStageProcedure, svc.ForceStage, opts...)
	reset := connect.NewUnaryHandler(AdminServiceResetProcedure, svc.Reset, opts...)

	return "/" + AdminServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case AdminServiceForceStageProcedure:
			forceStage.ServeHTTP(w, r)
		case AdminServiceResetProcedure:
			reset.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// CardClient is a client for the card service.
type CardClient struct {
	getState     *connect.Client[emptypb.Empty, structpb.Struct]
	trigger      *connect.Client[structpb.Struct, structpb.Struct]
	blowCandle   *connect.Client[structpb.Struct, structpb.Struct]
	setMusicMode *connect.Client[structpb.Struct, structpb.Struct]
	subscribe    *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewCardClient creates a card service client for baseURL.
func NewCardClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *CardClient {
	return &CardClient{
		getState:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+CardServiceGetStateProcedure, opts...),
		trigger:      connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CardServiceTriggerProcedure, opts...),
		blowCandle:   connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CardServiceBlowCandleProcedure, opts...),
		setMusicMode: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CardServiceSetMusicModeProcedure, opts...),
		subscribe:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+CardServiceSubscribeProcedure, opts...),
	}
}

// AdminClient is a client for the admin service.
type AdminClient struct {
	forceStage *connect.Client[structpb.Struct, structpb.Struct]
	reset      *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewAdminClient creates an admin service client for baseURL.
func NewAdminClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminClient {
	return &AdminClient{
		forceStage: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+AdminServiceForceStageProcedure, opts...),
		reset:      connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+AdminServiceResetProcedure, opts...),
	}
}
