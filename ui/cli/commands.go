package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"vincit.fi/jpeg-rotator/api"
	"vincit.fi/jpeg-rotator/api/apitype"
	"vincit.fi/jpeg-rotator/backend"
	"vincit.fi/jpeg-rotator/common/logger"
)

const eventBusQueueSize = 100

const defaultPreviewFile = "preview.jpg"

var errCommitFailed = errors.New("some images could not be rotated")

type session struct {
	brokers  *backend.Brokers
	services *backend.Services
	gui      *ConsoleGui
}

func (s *App) startSession() *session {
	brokers := backend.InitializeEventBrokers(eventBusQueueSize)
	services := backend.InitializeServices(s.params, s.fs, brokers)
	gui := NewConsoleGui(s.errOut)
	brokers.Broker.ConnectToGui(gui)
	return &session{
		brokers:  brokers,
		services: services,
		gui:      gui,
	}
}

func (s *session) Close() {
	s.services.Close()
	s.brokers.Close()
}

func (s *session) load(directory string) error {
	s.services.ImageService.InitializeFromDirectory(directory)
	result := s.gui.WaitForLoad()
	if result.Err != nil {
		return result.Err
	}
	if result.Cancelled {
		return errors.New("loading was cancelled")
	}
	return nil
}

// applySteps selects the rotations. Single clockwise and counter clockwise
// steps go through the same operations as interactive rotation.
func (s *session) applySteps(allSteps []*RotationSteps) error {
	imageService := s.services.ImageService
	for _, rotationSteps := range allSteps {
		imageFile := s.services.ImageLibrary.GetImageByName(rotationSteps.FileName)
		if !imageFile.IsValid() {
			return fmt.Errorf("image '%s' was not found", rotationSteps.FileName)
		}
		for _, step := range rotationSteps.Steps {
			switch step {
			case apitype.RotatedCW90:
				imageService.RotateClockwise(&api.RotateQuery{Id: imageFile.Id()})
			case apitype.RotatedCCW90:
				imageService.RotateCounterClockwise(&api.RotateQuery{Id: imageFile.Id()})
			default:
				imageService.SetRotation(&api.SetRotationCommand{
					Id:       imageFile.Id(),
					Rotation: apitype.Compose(imageFile.TargetRotation(), step),
				})
			}
		}
	}
	return nil
}

func (s *App) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list DIR",
		Short: "List the photos in DIR with their EXIF orientation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current := s.startSession()
			defer current.Close()
			if err := current.load(args[0]); err != nil {
				return err
			}
			s.printImages(current.services.ImageLibrary)
			return nil
		},
	}
}

func (s *App) printImages(library api.ImageLibrary) {
	for _, imageFile := range library.GetImages() {
		code, _ := apitype.EncodeExif(imageFile.LoadedRotation())
		fmt.Fprintf(s.out, "%-40s exif %d  %-7s -> %s\n",
			imageFile.FileName(), code, imageFile.LoadedRotation(), imageFile.TargetRotation())
	}
	fmt.Fprintf(s.out, "%d image(s), %d to rotate\n", library.TotalImages(), library.RotatedImages())
}

func (s *App) newRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate DIR FILE=STEP[,STEP...]...",
		Short: "Rotate photos in DIR and overwrite the originals",
		Long: `Rotate photos in DIR and overwrite the originals.

Each STEP is one of cw, ccw, 180 or upright. Steps are applied in order so
FILE=cw,cw turns the photo upside down.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			allSteps, err := ParseRotationSteps(args[1:])
			if err != nil {
				return err
			}

			current := s.startSession()
			defer current.Close()
			if err := current.load(directory); err != nil {
				return err
			}
			if err := current.applySteps(allSteps); err != nil {
				return err
			}
			return s.commit(current)
		},
	}
}

func (s *App) commit(current *session) error {
	library := current.services.ImageLibrary
	rotated := library.GetRotatedImages()
	if len(rotated) == 0 {
		fmt.Fprintln(s.out, "Nothing to rotate")
		return nil
	}

	for _, imageFile := range rotated {
		fmt.Fprintf(s.out, "%s: %s\n", imageFile.FileName(), imageFile.TargetRotation())
	}
	if !s.params.AssumeYes() && !s.confirm("Proceed to overwrite your original image files with the rotated versions? [y/N] ") {
		fmt.Fprintln(s.out, "Cancelled")
		return nil
	}

	stop := s.stopOnInterrupt(current.services.ImageService)
	defer stop()

	current.services.ImageService.RequestCommit()
	result := current.gui.WaitForCommit().Result
	return s.printResult(result)
}

func (s *App) printResult(result *api.BatchResult) error {
	if result.Unrecoverable != nil {
		var commitErr *apitype.CommitError
		fmt.Fprintln(s.errOut, "!!! AN ORIGINAL PHOTO COULD NOT BE RESTORED !!!")
		if errors.As(result.Unrecoverable, &commitErr) && commitErr.BackupPath != "" {
			fmt.Fprintf(s.errOut, "!!! The only copy of '%s' is at '%s' !!!\n", commitErr.Path, commitErr.BackupPath)
		}
		fmt.Fprintf(s.errOut, "%s\n", result.Unrecoverable)
		fmt.Fprintln(s.errOut, "Remaining images were not processed")
	}

	if result.FailureCount() > 0 {
		fmt.Fprintln(s.errOut, result.Summary())
	} else {
		fmt.Fprintln(s.out, result.Summary())
	}
	if result.Cancelled {
		fmt.Fprintln(s.out, "Rotating was cancelled, remaining images were not processed")
	}

	if result.Unrecoverable != nil {
		return result.Unrecoverable
	}
	if result.FailureCount() > 0 {
		return errCommitFailed
	}
	return nil
}

func (s *App) confirm(question string) bool {
	fmt.Fprint(s.out, question)
	answer, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && err != io.EOF {
		logger.Warn.Print("Could not read answer: ", err)
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// stopOnInterrupt requests the running operation to stop on SIGINT or
// SIGTERM. The file being rewritten is always finished first.
func (s *App) stopOnInterrupt(imageService api.ImageService) func() {
	signals := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-signals:
			logger.Info.Printf("Received %s, stopping after the current image", sig)
			imageService.RequestStop()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}

func (s *App) newPreviewCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "preview DIR [FILE=STEP[,STEP...]...]",
		Short: "Render the photos and their rotated versions to a JPEG contact sheet",
		Long: `Render the photos and their rotated versions to a JPEG contact sheet.

Only the photos with a rotation are drawn when rotations are given. The
original files are not modified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allSteps, err := ParseRotationSteps(args[1:])
			if err != nil {
				return err
			}

			current := s.startSession()
			defer current.Close()
			if err := current.load(args[0]); err != nil {
				return err
			}
			if err := current.applySteps(allSteps); err != nil {
				return err
			}

			images := current.services.ImageLibrary.GetRotatedImages()
			if len(images) == 0 {
				images = current.services.ImageLibrary.GetImages()
			}
			if err := current.services.PreviewRenderer.WriteJpeg(s.fs, out, images); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Preview of %d image(s) written to '%s'\n", len(images), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", defaultPreviewFile, "Preview file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "jpeg-rotator %s\n", Version)
			return nil
		},
	}
}
