package logsvc

import (
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/fightlab/core"
)

type RollbarLogger struct {
	sugar    *zap.SugaredLogger
	hasToken bool
	report   bool
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewZapLogger builds the local log sink: human readable in debug, JSON otherwise.
func NewZapLogger(conf *core.Config, name string) *zap.Logger {
	var (
		zl  *zap.Logger
		err error
	)
	if conf.Debug {
		zl, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zl, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		zl = zap.NewExample()
	}
	return zl.Named(name).With(zap.String("env", conf.Env), zap.String("build", conf.Build))
}

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	hasToken := conf.RollbarToken != ""
	return &RollbarLogger{sugar: zl.Sugar(), hasToken: hasToken, report: hasToken}
}

// NewNopLogger discards everything; used in tests.
func NewNopLogger() *RollbarLogger {
	return &RollbarLogger{sugar: zap.NewNop().Sugar()}
}

// Enable turns rollbar reporting on or off; it stays off without a token.
func (l *RollbarLogger) Enable(enabled bool) {
	l.report = enabled && l.hasToken
	rollbar.SetEnabled(l.report)
}

// Reporting reports whether entries are forwarded to rollbar.
func (l *RollbarLogger) Reporting() bool {
	return l.report
}

// Sync flushes buffered log entries and waits for pending rollbar items.
func (l *RollbarLogger) Sync() {
	_ = l.sugar.Sync()
	if l.report {
		rollbar.Wait()
	}
}

// expected fmt: msg | error, map[string]interface{}, core.LogUser
func (l *RollbarLogger) prepare(msg string, args []interface{}) (rbArgs []interface{}, kvs []interface{}) {
	var usrSet bool
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.LogUser:
			// set logged in User
			if !usrSet { // only set one User
				if l.report {
					rollbar.SetPerson(a.ID, a.Role, a.Email)
				}
				kvs = append(kvs, "user_id", a.ID)
				usrSet = true
			}
		case error:
			rbArgs = append(rbArgs, a)
			kvs = append(kvs, "error", a.Error())
		case map[string]interface{}:
			rbArgs = append(rbArgs, a)
			for k, v := range a {
				kvs = append(kvs, k, v)
			}
		default:
			rbArgs = append(rbArgs, a)
			kvs = append(kvs, "arg", a)
		}
	}
	if !usrSet && l.report {
		rollbar.ClearPerson()
	}
	return rbArgs, kvs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Debug(rbArgs...)
	}
	l.sugar.Debugw(msg, kvs...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Info(rbArgs...)
	}
	l.sugar.Infow(msg, kvs...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Warning(rbArgs...)
	}
	l.sugar.Warnw(msg, kvs...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Error(rbArgs...)
	}
	l.sugar.Errorw(msg, kvs...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	if l.report {
		rollbar.Critical(rbArgs...)
		rollbar.Wait()
	}
	l.sugar.Errorw(msg, kvs...)
	_ = l.sugar.Sync()
	os.Exit(1)
}
