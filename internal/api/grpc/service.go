package grpcapi

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the analysis service.
const ServiceName = "speech.analytics.v1.TranscriptAnalysisService"

// InteractionIDKey is the metadata key carrying the caller's interaction id.
const InteractionIDKey = "x-interaction-id"

// AnalyzeAudioStream is the server side of AnalyzeAudio: audio chunks in,
// one analysis summary out.
type AnalyzeAudioStream = grpc.ClientStreamingServer[wrapperspb.BytesValue, structpb.Struct]

// TranscriptAnalysisServer is implemented by the analysis service.
type TranscriptAnalysisServer interface {
	AnalyzeAudio(AnalyzeAudioStream) error
}

// ServiceDesc describes TranscriptAnalysisService. Its messages are protobuf
// well-known types, so no generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranscriptAnalysisServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "AnalyzeAudio",
			Handler:       analyzeAudioHandler,
			ClientStreams: true,
		},
	},
}

func analyzeAudioHandler(srv any, stream grpc.ServerStream) error {
	return srv.(TranscriptAnalysisServer).AnalyzeAudio(&grpc.GenericServerStream[wrapperspb.BytesValue, structpb.Struct]{ServerStream: stream})
}

// RegisterTranscriptAnalysisServer registers srv on s.
func RegisterTranscriptAnalysisServer(s grpc.ServiceRegistrar, srv TranscriptAnalysisServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls TranscriptAnalysisService.
type Client struct {
	cc        grpc.ClientConnInterface
	ChunkSize int
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, ChunkSize: 32 << 10}
}

// AnalyzeAudio streams audio from r and returns the analysis summary.
// An empty interactionID lets the server assign one.
func (c *Client) AnalyzeAudio(ctx context.Context, interactionID string, r io.Reader) (*structpb.Struct, error) {
	if interactionID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, InteractionIDKey, interactionID)
	}
	cs, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/AnalyzeAudio")
	if err != nil {
		return nil, err
	}
	stream := &grpc.GenericClientStream[wrapperspb.BytesValue, structpb.Struct]{ClientStream: cs}

	buf := make([]byte, c.ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if sendErr := stream.Send(wrapperspb.Bytes(buf[:n])); sendErr != nil {
				// The server ended the stream; CloseAndRecv reports why.
				if sendErr == io.EOF {
					break
				}
				return nil, sendErr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return stream.CloseAndRecv()
}
