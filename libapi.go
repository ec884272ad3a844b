package callguard

import (
	runtimepkg "github.com/drblury/callguard/internal/runtime"
	configpkg "github.com/drblury/callguard/internal/runtime/config"
	errspkg "github.com/drblury/callguard/internal/runtime/errors"
	idspkg "github.com/drblury/callguard/internal/runtime/ids"
	jsoncodec "github.com/drblury/callguard/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/logstore"
	"github.com/drblury/callguard/internal/runtime/typespec"
	transportpkg "github.com/drblury/callguard/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	EndpointRegistration = runtimepkg.EndpointRegistration
	CallKind             = runtimepkg.CallKind
	Callback             = runtimepkg.Callback
	CallResult           = runtimepkg.CallResult
	Stage                = runtimepkg.Stage
	RejectionError       = runtimepkg.RejectionError

	Gate        = runtimepkg.Gate
	GateContext = runtimepkg.GateContext

	// Call lifecycle hooks
	CallContext = runtimepkg.CallContext
	CallHooks   = runtimepkg.CallHooks

	EndpointInfo       = runtimepkg.EndpointInfo
	EndpointStats      = runtimepkg.EndpointStats
	RejectionBreakdown = runtimepkg.RejectionBreakdown
	LatencyMetrics     = runtimepkg.LatencyMetrics
	ThroughputMetrics  = runtimepkg.ThroughputMetrics

	// Parameter specs and argument values
	Param           = typespec.Param
	CompiledSpec    = typespec.CompiledSpec
	Value           = typespec.Value
	ValueKind       = typespec.Kind
	SpecError       = typespec.SpecError
	ValidationError = typespec.ValidationError

	// Call log
	LogIndex      = logstore.Index
	LogEntry      = logstore.Entry
	LogSubEvent   = logstore.SubEvent
	LogLevel      = logstore.Level
	LogStatistics = logstore.Statistics

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError

	// Transport types
	Transport             = transportpkg.Transport
	TransportBuilder      = transportpkg.Builder
	TransportConfig       = transportpkg.Config
	TransportRegistry     = transportpkg.Registry
	TransportCapabilities = transportpkg.Capabilities
	Envelope              = transportpkg.Envelope
	Reply                 = transportpkg.Reply
)

const (
	KindEvent   = runtimepkg.KindEvent
	KindRequest = runtimepkg.KindRequest

	StageDispatch   = runtimepkg.StageDispatch
	StageMiddleware = runtimepkg.StageMiddleware
	StageRateLimit  = runtimepkg.StageRateLimit
	StageValidation = runtimepkg.StageValidation
	StageCallback   = runtimepkg.StageCallback

	LogLevelInfo  = logstore.LevelInfo
	LogLevelError = logstore.LevelError
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.Validate

	RegisterEndpoint = runtimepkg.RegisterEndpoint

	// Call lifecycle hooks
	LoggingHooks = runtimepkg.LoggingHooks

	// Argument value constructors
	StringValue = typespec.String
	NumberValue = typespec.Number
	BoolValue   = typespec.Bool
	TableValue  = typespec.Table
	ValueOf     = typespec.FromAny
	Values      = typespec.Values
	None        = typespec.None

	CompileSpec     = typespec.Compile
	MustCompileSpec = typespec.MustCompile

	// Transport registry
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	GetCapabilities          = transportpkg.GetCapabilities
	NewEnvelopeMessage       = transportpkg.NewEnvelopeMessage
	DecodeEnvelope           = transportpkg.DecodeEnvelope
	NewReplyMessage          = transportpkg.NewReplyMessage
	DecodeReply              = transportpkg.DecodeReply

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrCallbackRequired     = errspkg.ErrCallbackRequired
	ErrEndpointNameRequired = errspkg.ErrEndpointNameRequired
	ErrEndpointExists       = errspkg.ErrEndpointExists
	ErrUnknownEndpoint      = errspkg.ErrUnknownEndpoint
	ErrGateRequired         = errspkg.ErrGateRequired
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewNopServiceLogger       = loggingpkg.NewNopServiceLogger
	NewWatermillAdapter       = loggingpkg.NewWatermillAdapter

	// NewCallID generates a unique call ID using ULID.
	NewCallID = idspkg.NewCallID
)
