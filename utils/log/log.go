package log

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	LogV2 *Wrapper
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	initLogger()
}

// Wrapper keeps the variadic join-style helpers call sites rely on while
// delegating to logrus underneath.
type Wrapper struct {
	*logrus.Logger
}

func (l *Wrapper) Infof(params ...interface{}) {
	l.Logger.Info(joinParams(params))
}

func (l *Wrapper) Debugf(params ...interface{}) {
	l.Logger.Debug(joinParams(params))
}

func (l *Wrapper) Errorf(params ...interface{}) {
	l.Logger.Error(joinParams(params))
}

func joinParams(params []interface{}) string {
	strs := make([]string, len(params))
	for i, param := range params {
		strs[i] = fmt.Sprint(param)
	}
	return strings.Join(strs, ", ")
}

func initLogger() {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	env := os.Getenv("VEILLE_ENV")
	if env == "prod" {
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetLevel(logrus.DebugLevel)
	}

	LogV2 = &Wrapper{l}
}
