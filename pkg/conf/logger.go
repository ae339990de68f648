package conf

import (
	"os"
	"strings"

	filename "github.com/keepeye/logrus-filename"
	"github.com/sirupsen/logrus"
)

var (
	Log       *logrus.Logger
	IsTesting bool
)

func init() {
	InitLogger()
}

// InitLogger installs a fresh process logger writing to stderr with the
// caller file attached to every entry.
func InitLogger() {
	Log = logrus.New()
	Log.SetOutput(os.Stderr)
	filenameHook := filename.NewHook()
	filenameHook.Field = "file"
	Log.AddHook(filenameHook)

	Log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
		FullTimestamp:   true,
	})
	Log.SetLevel(logrus.WarnLevel)

	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			IsTesting = true
			break
		}
	}
}

// SetLogLevel parses a logrus level name and applies it to Log.
func SetLogLevel(level string) error {
	if level == "" {
		return nil
	}
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Log.SetLevel(l)
	return nil
}
