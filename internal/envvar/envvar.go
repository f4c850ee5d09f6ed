package envvar

const (
	// BgblastEnv is the environment variable used to determine the environment
	BgblastEnv = "BGBLAST_ENV"

	// BgblastServerHTTPPort is the environment variable used to determine the HTTP port
	BgblastServerHTTPPort = "BGBLAST_SERVER_HTTP_PORT"

	// BgblastServerGRPCPort is the environment variable used to determine the gRPC port
	BgblastServerGRPCPort = "BGBLAST_SERVER_GRPC_PORT"

	// BgblastModelsPath is the environment variable used to override the models directory
	BgblastModelsPath = "BGBLAST_MODELS_PATH"

	// BgblastOnnxRuntimeLib is the environment variable used to override the onnxruntime shared library path
	BgblastOnnxRuntimeLib = "BGBLAST_ONNXRUNTIME_LIB"
)
