package clickhouse

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sort"
	"sync"
	"time"

	zk "github.com/go-zookeeper/zk"

	log "github.com/sirupsen/logrus"
)

const (
	defaultZkSessionTimeoutSec = 60
	defaultZkRetryInterval     = time.Second
)

// ReadChildren lists the children of a znode and returns a watch that fires on change.
type ReadChildren func(path string) ([]string, <-chan zk.Event, error)

type zookeeperHostSelector struct {
	zkConfig     *ZookeeperConfig
	zkConn       *zk.Conn
	readChildren ReadChildren
	hostList     []string
	rwMux        sync.RWMutex

	// Zero means defaultZkRetryInterval.
	retryInterval time.Duration
}

func (s *zookeeperHostSelector) init() error {
	if s.readChildren == nil {
		timeout := s.zkConfig.SessionTimeoutSec
		if timeout <= 0 {
			timeout = defaultZkSessionTimeoutSec
		}
		var err error
		s.zkConn, _, err = zk.Connect(s.zkConfig.ZookeeperPath, time.Duration(timeout)*time.Second)
		if err != nil {
			log.Errorf("Failed to connect to zookeeper: %v\n", s.zkConfig.ZookeeperPath)
			return err
		}
		s.readChildren = func(path string) ([]string, <-chan zk.Event, error) {
			children, _, watch, err := s.zkConn.ChildrenW(path)
			return children, watch, err
		}
	}
	watch, err := s.refreshHosts()
	if err != nil {
		return err
	}
	go s.setupWatcher(watch)
	return nil
}

// setupWatcher refreshes the host list each time the watch fires. It returns once the
// watch is dropped or the zookeeper connection is closing, and closes the connection
// it owns on the way out.
func (s *zookeeperHostSelector) setupWatcher(watch <-chan zk.Event) {
	defer s.closeConn()
	interval := s.retryInterval
	if interval <= 0 {
		interval = defaultZkRetryInterval
	}
	for {
		ev, ok := <-watch
		if !ok || ev.Type == zk.EventNotWatching {
			return
		}
		if ev.Err != nil {
			log.Error("ChildrenW watcher error", ev.Err)
		}
		// A fired watch is spent; refreshing re-arms it.
		next, err := s.refreshHosts()
		for err != nil {
			if connectionClosed(err) {
				log.Warnf("Stop watching zk path %s: %v", s.zkConfig.Path, err)
				return
			}
			time.Sleep(interval)
			next, err = s.refreshHosts()
		}
		watch = next
	}
}

func connectionClosed(err error) bool {
	return errors.Is(err, zk.ErrClosing) || errors.Is(err, zk.ErrConnectionClosed)
}

func (s *zookeeperHostSelector) closeConn() {
	if s.zkConn != nil {
		s.zkConn.Close()
	}
}

func (s *zookeeperHostSelector) refreshHosts() (<-chan zk.Event, error) {
	children, watch, err := s.readChildren(s.zkConfig.Path)
	if err != nil {
		log.Errorf("Failed to list hosts under zk path: %s, Error: %v\n", s.zkConfig.Path, err)
		return nil, err
	}
	hosts := extractHosts(children)
	s.rwMux.Lock()
	s.hostList = hosts
	s.rwMux.Unlock()
	return watch, nil
}

func (s *zookeeperHostSelector) selectHost() (string, error) {
	s.rwMux.RLock()
	defer s.rwMux.RUnlock()
	if len(s.hostList) == 0 {
		return "", fmt.Errorf("no available host registered under %s", s.zkConfig.Path)
	}
	// #nosec G404
	return s.hostList[rand.Intn(len(s.hostList))], nil
}

// extractHosts keeps the children that are valid host:port pairs.
func extractHosts(children []string) []string {
	hosts := []string{}
	for _, child := range children {
		if _, _, err := net.SplitHostPort(child); err != nil {
			log.Errorf("Invalid host entry: %s, should be in the format of [hostname]:[port]", child)
			continue
		}
		hosts = append(hosts, child)
	}
	sort.Strings(hosts)
	return hosts
}
