package api

import (
	"context"

	"google.golang.org/grpc"

	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/session"
	"github.com/victornm/trivia/internal/stats"
)

const ServiceName = "trivia.v1.TriviaService"

// TriviaServer is the gRPC service implemented by API.
type TriviaServer interface {
	ListCategories(ctx context.Context, req ListCategoriesRequest) (*ListCategoriesResponse, error)
	Start(ctx context.Context, req StartRequest) (*session.StartResponse, error)
	SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*session.AnswerResult, error)
	Abandon(ctx context.Context, req AbandonRequest) (*AbandonResponse, error)
	GetSession(ctx context.Context, req GetSessionRequest) (*session.View, error)
	GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*leaderboard.Leaderboard, error)
	GetStats(ctx context.Context, req GetStatsRequest) (*stats.Snapshot, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TriviaServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListCategories", TriviaServer.ListCategories),
		unary("Start", TriviaServer.Start),
		unary("SubmitAnswer", TriviaServer.SubmitAnswer),
		unary("Abandon", TriviaServer.Abandon),
		unary("GetSession", TriviaServer.GetSession),
		unary("GetLeaderboard", TriviaServer.GetLeaderboard),
		unary("GetStats", TriviaServer.GetStats),
	},
	Metadata: "trivia/v1/trivia.json",
}

// RegisterGRPC registers the trivia service on s.
func (a *API) RegisterGRPC(s grpc.ServiceRegistrar) {
	s.RegisterService(&serviceDesc, a)
}

func unary[Req, Resp any](name string, op func(TriviaServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("malformed request: %v", err))
			}

			call := func(ctx context.Context, r any) (any, error) {
				resp, err := op(srv.(TriviaServer), ctx, *r.(*Req))
				if err != nil {
					return nil, errors.Convert(err)
				}
				return resp, nil
			}

			if interceptor == nil {
				return call(ctx, req)
			}
			return interceptor(ctx, req, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, call)
		},
	}
}

// TriviaClient calls the trivia service with the JSON codec.
type TriviaClient struct {
	cc grpc.ClientConnInterface
}

func NewTriviaClient(cc grpc.ClientConnInterface) *TriviaClient {
	return &TriviaClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	resp := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, opts...); err != nil {
		return nil, errors.FromGRPC(err)
	}
	return resp, nil
}

func (c *TriviaClient) ListCategories(ctx context.Context, req ListCategoriesRequest, opts ...grpc.CallOption) (*ListCategoriesResponse, error) {
	return invoke[ListCategoriesResponse](ctx, c.cc, "ListCategories", req, opts...)
}

func (c *TriviaClient) Start(ctx context.Context, req StartRequest, opts ...grpc.CallOption) (*session.StartResponse, error) {
	return invoke[session.StartResponse](ctx, c.cc, "Start", req, opts...)
}

func (c *TriviaClient) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest, opts ...grpc.CallOption) (*session.AnswerResult, error) {
	return invoke[session.AnswerResult](ctx, c.cc, "SubmitAnswer", req, opts...)
}

func (c *TriviaClient) Abandon(ctx context.Context, req AbandonRequest, opts ...grpc.CallOption) (*AbandonResponse, error) {
	return invoke[AbandonResponse](ctx, c.cc, "Abandon", req, opts...)
}

func (c *TriviaClient) GetSession(ctx context.Context, req GetSessionRequest, opts ...grpc.CallOption) (*session.View, error) {
	return invoke[session.View](ctx, c.cc, "GetSession", req, opts...)
}

func (c *TriviaClient) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest, opts ...grpc.CallOption) (*leaderboard.Leaderboard, error) {
	return invoke[leaderboard.Leaderboard](ctx, c.cc, "GetLeaderboard", req, opts...)
}

func (c *TriviaClient) GetStats(ctx context.Context, req GetStatsRequest, opts ...grpc.CallOption) (*stats.Snapshot, error) {
	return invoke[stats.Snapshot](ctx, c.cc, "GetStats", req, opts...)
}
