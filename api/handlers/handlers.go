package handlers

import (
	"github.com/parsekit/parsekit-converter/internal/converter"
	"github.com/parsekit/parsekit-converter/pkg/logger"
)

type Handlers struct {
	Convert *ConvertHandler
	Meta    *MetaHandler
	logger  logger.Logger
}

func NewHandlers(service converter.Converter, log logger.Logger) *Handlers {
	return &Handlers{
		Convert: NewConvertHandler(service, log),
		Meta:    NewMetaHandler(),
		logger:  log,
	}
}
