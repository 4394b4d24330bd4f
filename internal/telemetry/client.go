package telemetry

import (
	"context"
	"encoding/json"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"traffic-director/internal/common/logging"
)

// Client is the boundary the rest of the proxy programs against. All
// three operations are optional downstream calls made per decision;
// none of them participates in the decision itself.
type Client interface {
	Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error)
	Report(ctx context.Context, req *ReportRequest) error
	Quota(ctx context.Context, req *QuotaRequest) (*QuotaResponse, error)
	Close() error
}

const serviceName = "/trafficdirector.policy.v1.PolicyBackend/"

var (
	checkDesc  = &grpc.StreamDesc{StreamName: "Check", ClientStreams: true, ServerStreams: true}
	reportDesc = &grpc.StreamDesc{StreamName: "Report", ClientStreams: true, ServerStreams: true}
	quotaDesc  = &grpc.StreamDesc{StreamName: "Quota", ClientStreams: true, ServerStreams: true}
)

// jsonCodec lets the hand-rolled streams exchange plain JSON messages
// instead of generated protobuf types; the backend contract is opaque
// to this proxy either way.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// opStream is one operation's long-lived stream. The mutex serializes
// the whole send(+recv) round trip: grpc.ClientStream forbids
// concurrent SendMsg calls, and interleaved send/recv pairs would hand
// one caller another caller's response.
type opStream struct {
	desc *grpc.StreamDesc

	mu     sync.Mutex
	stream grpc.ClientStream
}

// grpcClient keeps one long-lived stream per operation, reopened on
// error at the next call.
type grpcClient struct {
	conn   *grpc.ClientConn
	ctx    context.Context
	cancel context.CancelFunc
	logger logging.Logger

	// newStream opens the underlying transport stream; swapped in tests.
	newStream func(desc *grpc.StreamDesc) (grpc.ClientStream, error)

	check  opStream
	report opStream
	quota  opStream
}

// Dial connects to the policy backend at target. The connection is
// plaintext; the backend sits alongside the proxy on the mesh.
func Dial(target string, logger logging.Logger) (Client, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &grpcClient{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		check:  opStream{desc: checkDesc},
		report: opStream{desc: reportDesc},
		quota:  opStream{desc: quotaDesc},
	}
	c.newStream = func(desc *grpc.StreamDesc) (grpc.ClientStream, error) {
		return conn.NewStream(ctx, desc, serviceName+desc.StreamName, grpc.CallContentSubtype("json"))
	}
	return c, nil
}

// roundTrip sends req on the operation's stream and decodes the next
// message into resp, holding the operation's lock for the full
// exchange. On any stream error the stream is dropped so the next call
// reopens it.
func (c *grpcClient) roundTrip(op *opStream, req, resp interface{}) error {
	op.mu.Lock()
	defer op.mu.Unlock()

	if op.stream == nil {
		s, err := c.newStream(op.desc)
		if err != nil {
			return err
		}
		op.stream = s
	}
	if err := op.stream.SendMsg(req); err != nil {
		op.stream = nil
		return err
	}
	if resp == nil {
		return nil
	}
	if err := op.stream.RecvMsg(resp); err != nil {
		op.stream = nil
		return err
	}
	return nil
}

func (c *grpcClient) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	resp := &CheckResponse{}
	if err := c.roundTrip(&c.check, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *grpcClient) Report(ctx context.Context, req *ReportRequest) error {
	// Report is emission only; the backend's acknowledgments, if any,
	// are not waited on.
	return c.roundTrip(&c.report, req, nil)
}

func (c *grpcClient) Quota(ctx context.Context, req *QuotaRequest) (*QuotaResponse, error) {
	resp := &QuotaResponse{}
	if err := c.roundTrip(&c.quota, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *grpcClient) Close() error {
	c.cancel()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// NopClient is used when no policy backend is configured: Check allows
// everything, Report and Quota succeed without doing anything.
type NopClient struct{}

func (NopClient) Check(context.Context, *CheckRequest) (*CheckResponse, error) {
	return &CheckResponse{Allowed: true}, nil
}

func (NopClient) Report(context.Context, *ReportRequest) error { return nil }

func (NopClient) Quota(context.Context, *QuotaRequest) (*QuotaResponse, error) {
	return &QuotaResponse{}, nil
}

func (NopClient) Close() error { return nil }
