package backend

import (
	"github.com/spf13/afero"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
	"vincit.fi/jpeg-rotator/backend/internal/codec"
	"vincit.fi/jpeg-rotator/backend/internal/commit"
	"vincit.fi/jpeg-rotator/backend/internal/library"
	"vincit.fi/jpeg-rotator/backend/internal/preview"
	"vincit.fi/jpeg-rotator/common"
	"vincit.fi/jpeg-rotator/common/event"
	"vincit.fi/jpeg-rotator/common/logger"
)

type Services struct {
	ImageService    api.ImageService
	ImageLibrary    api.ImageLibrary
	ImageCodec      api.ImageCodec
	Committer       api.Committer
	PreviewRenderer api.PreviewRenderer
}

func (s *Services) Close() {
	s.ImageService.Close()
}

type Brokers struct {
	Broker *event.Broker
}

func (s *Brokers) Close() {
	s.Broker.Close()
}

func InitializeEventBrokers(eventBusQueueSize int) *Brokers {
	logger.Debug.Printf("Initialize event brokers...")
	brokers := &Brokers{
		Broker: event.InitBus(eventBusQueueSize),
	}
	logger.Debug.Printf("Event brokers initialized")
	return brokers
}

func InitializeServices(params *common.Params, fs afero.Fs, brokers *Brokers) *Services {
	logger.Debug.Printf("Initialize services...")
	imageCodec := codec.NewLibJPEGCodec(params.Quality())
	committer := commit.NewCommitter(fs, imageCodec, params.TempDir())
	thumbnailSize := apitype.SquareSize(params.ThumbnailSize())

	progressReporter := api.NewSenderProgressReporter(brokers.Broker)
	imageLibrary := library.NewImageLibrary(fs, imageCodec, committer, thumbnailSize, progressReporter)
	services := &Services{
		ImageService:    library.NewImageService(brokers.Broker, imageLibrary),
		ImageLibrary:    imageLibrary,
		ImageCodec:      imageCodec,
		Committer:       committer,
		PreviewRenderer: preview.NewSheetRenderer(imageCodec, thumbnailSize),
	}
	logger.Debug.Printf("Services initialized")
	return services
}
