package clickhouse

import (
	"fmt"
	"math/rand"
)

type simpleHostSelector struct {
	hostList []string
}

func (s *simpleHostSelector) init() error {
	if len(s.hostList) == 0 {
		return fmt.Errorf("no pre-configured host list set in simpleHostSelector")
	}
	return nil
}

func (s *simpleHostSelector) selectHost() (string, error) {
	if len(s.hostList) == 0 {
		return "", fmt.Errorf("no pre-configured host list set in simpleHostSelector")
	}
	// #nosec G404
	return s.hostList[rand.Intn(len(s.hostList))], nil
}
