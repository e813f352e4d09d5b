package server

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/reflect/protoreflect"
)

//go:embed compiler.proto
var compilerProto string

const (
	protoFile   = "ash/v1/compiler.proto"
	ServiceName = "ash.v1.Compiler"
	compileName = "Compile"
	// CompileMethod is the full gRPC method path of Compile.
	CompileMethod = "/" + ServiceName + "/" + compileName
)

// schema holds the descriptors of the compile service.
type schema struct {
	file     *desc.FileDescriptor
	service  *desc.ServiceDescriptor
	request  protoreflect.MessageDescriptor
	response protoreflect.MessageDescriptor
}

var (
	schemaOnce   sync.Once
	loadedSchema *schema
	schemaErr    error
)

// loadSchema parses the embedded service definition once.
func loadSchema() (*schema, error) {
	schemaOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor: protoparse.FileContentsFromMap(map[string]string{protoFile: compilerProto}),
		}
		fds, err := parser.ParseFiles(protoFile)
		if err != nil {
			schemaErr = fmt.Errorf("failed to parse proto: %w", err)
			return
		}
		fd := fds[0]
		sd := fd.FindService(ServiceName)
		if sd == nil {
			schemaErr = fmt.Errorf("service %s not found in %s", ServiceName, protoFile)
			return
		}
		md := sd.FindMethodByName(compileName)
		if md == nil {
			schemaErr = fmt.Errorf("method %s not found in %s", compileName, ServiceName)
			return
		}
		loadedSchema = &schema{
			file:     fd,
			service:  sd,
			request:  md.GetInputType().UnwrapMessage(),
			response: md.GetOutputType().UnwrapMessage(),
		}
	})
	return loadedSchema, schemaErr
}
