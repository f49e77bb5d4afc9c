package logfields

import (
	"github.com/abc0922001/apkupdater/pkg/catalog"

	"github.com/sirupsen/logrus"
)

func Update(u catalog.Update) logrus.Fields {
	return logrus.Fields{
		"id":      u.ID,
		"package": u.PackageName,
		"source":  string(u.Source),
	}
}
