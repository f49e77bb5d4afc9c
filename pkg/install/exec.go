package install

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// runner executes install commands.
type runner interface {
	run(ctx context.Context, args []string) error
}

type executable struct{}

func (e *executable) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("no command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if logging.Debuggable {
		logging.New("install").WithFields(logrus.Fields{
			"cmd": cmd.String(),
		}).Debug("Executing")
	}

	if err := cmd.Run(); err != nil {
		if logging.Debuggable {
			logging.New("install").WithFields(logrus.Fields{
				"cmd":    cmd.String(),
				"output": buf.String(),
			}).WithError(err).Error("Command failed")
		}
		if out := bytes.TrimSpace(buf.Bytes()); len(out) > 0 {
			return errors.Wrapf(err, "%s: %s", args[0], out)
		}
		return errors.Wrap(err, args[0])
	}
	if logging.Debuggable {
		logging.New("install").WithFields(logrus.Fields{
			"cmd":    cmd.String(),
			"output": buf.String(),
		}).Debug("Command completed successfully")
	}
	return nil
}
