package cli

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"vincit.fi/jpeg-rotator/common"
	"vincit.fi/jpeg-rotator/common/logger"
)

// Version is set at build time.
var Version = "dev"

type App struct {
	v      *viper.Viper
	fs     afero.Fs
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	params *common.Params
}

func NewRootCmd(fs afero.Fs, in io.Reader, out io.Writer, errOut io.Writer) *cobra.Command {
	app := &App{
		v:      common.NewViper(),
		fs:     fs,
		in:     in,
		out:    out,
		errOut: errOut,
		params: common.NewEmptyParams(),
	}
	app.v.SetFs(fs)

	rootCmd := &cobra.Command{
		Use:   "jpeg-rotator",
		Short: "Rotate JPEG photos and their EXIF orientation in place",
		Long: `jpeg-rotator rotates the pixels of JPEG photos and updates their EXIF
orientation tag to match. Originals are backed up to the temp dir while a
file is rewritten and restored if the rewrite fails.

Examples:
  # Show the photos and their EXIF orientation
  jpeg-rotator list ./photos

  # Turn one photo clockwise and another one upside down
  jpeg-rotator rotate ./photos IMG_0001.jpg=cw IMG_0002.jpg=cw,cw

  # Render the rotations to a contact sheet before committing
  jpeg-rotator preview ./photos IMG_0001.jpg=ccw --out sheet.jpg`,
		SilenceUsage:      true,
		PersistentPreRunE: app.loadParams,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	if err := common.BindFlags(app.v, rootCmd); err != nil {
		logger.Error.Panic("Could not bind flags: ", err)
	}

	rootCmd.AddCommand(app.newListCmd())
	rootCmd.AddCommand(app.newRotateCmd())
	rootCmd.AddCommand(app.newPreviewCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command line and returns the exit code.
func Execute() int {
	if err := NewRootCmd(afero.NewOsFs(), os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		return 1
	}
	return 0
}

func (s *App) loadParams(_ *cobra.Command, args []string) error {
	rootPath := ""
	if len(args) > 0 {
		rootPath = args[0]
	}
	params, err := common.LoadParams(s.v, rootPath)
	if err != nil {
		return err
	}
	s.params = params
	logger.InitializeWithWriters(logger.StringToLogLevel(params.LogLevel()), s.errOut, s.errOut)
	logger.Debug.Printf("Log level '%s'", params.LogLevel())
	return nil
}
