package drawlock

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const zkNodePrefix = "lock-"

// ZooKeeperConn is the subset of *zk.Conn the locker uses.
type ZooKeeperConn interface {
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	CreateProtectedEphemeralSequential(path string, data []byte, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Delete(path string, version int32) error
}

var _ ZooKeeperConn = (*zk.Conn)(nil)

// ZooKeeperLocker queues holders as ephemeral sequential nodes under one
// parent per key. The lowest sequence holds the lock.
//
// On acquisition the holder stamps its node with an expiry of now+lease and
// deletes the node when the lease runs out. Waiters also delete a head node
// whose stamp has passed, so a holder that stopped running still loses the
// key after its lease. Session loss removes the nodes as well.
type ZooKeeperLocker struct {
	conn ZooKeeperConn
	root string
	now  func() time.Time
}

func NewZooKeeperLocker(conn ZooKeeperConn, root string) *ZooKeeperLocker {
	if root == "" {
		root = "/lottery_locks"
	}
	return &ZooKeeperLocker{conn: conn, root: root, now: time.Now}
}

func (l *ZooKeeperLocker) Backend() string { return "zookeeper" }

func (l *ZooKeeperLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (Unlock, error) {
	if l == nil || l.conn == nil {
		return nil, errors.New("lock client not configured")
	}
	if err := validate(key, wait, lease); err != nil {
		return nil, err
	}

	parent := l.parentOf(key)
	if err := l.ensurePath(parent); err != nil {
		return nil, err
	}

	node, err := l.conn.CreateProtectedEphemeralSequential(parent+"/"+zkNodePrefix, nil, zk.WorldACL(zk.PermAll))
	if err != nil {
		return nil, fmt.Errorf("zookeeper create lock node: %w", err)
	}
	drop := l.deleteNode(node)

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	mine := path.Base(node)
	for {
		children, _, err := l.conn.Children(parent)
		if err != nil {
			_ = drop()
			return nil, fmt.Errorf("zookeeper list lock nodes: %w", err)
		}
		sortBySequence(children)

		idx := indexOf(children, mine)
		if idx < 0 {
			return nil, errors.New("zookeeper lock node disappeared")
		}
		if idx == 0 {
			return l.hold(node, lease)
		}

		head := parent + "/" + children[0]
		expiresIn, stamped, err := l.expiryOf(head)
		if err != nil {
			_ = drop()
			return nil, err
		}
		if stamped && expiresIn <= 0 {
			if err := l.conn.Delete(head, -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
				_ = drop()
				return nil, fmt.Errorf("zookeeper delete expired holder: %w", err)
			}
			continue
		}

		exists, _, events, err := l.conn.ExistsW(parent + "/" + children[idx-1])
		if err != nil {
			_ = drop()
			return nil, fmt.Errorf("zookeeper watch predecessor: %w", err)
		}
		if !exists {
			continue
		}

		var (
			timer   *time.Timer
			expired <-chan time.Time
		)
		if stamped {
			timer = time.NewTimer(expiresIn)
			expired = timer.C
		}

		select {
		case <-events:
		case <-expired:
		case <-waitCtx.Done():
			stopTimer(timer)
			_ = drop()
			return nil, waitFailed(ctx)
		}
		stopTimer(timer)
	}
}

// hold stamps the node with its expiry and arms the lease timer.
func (l *ZooKeeperLocker) hold(node string, lease time.Duration) (Unlock, error) {
	drop := l.deleteNode(node)
	expiry := l.now().Add(lease)
	if _, err := l.conn.Set(node, []byte(strconv.FormatInt(expiry.UnixMilli(), 10)), -1); err != nil {
		_ = drop()
		return nil, fmt.Errorf("zookeeper stamp lock node: %w", err)
	}

	timer := time.AfterFunc(lease, func() { _ = drop() })
	return func(context.Context) error {
		timer.Stop()
		return drop()
	}, nil
}

// expiryOf reports how long the node has left. Unstamped nodes are still
// acquiring and have no expiry yet.
func (l *ZooKeeperLocker) expiryOf(node string) (time.Duration, bool, error) {
	data, _, err := l.conn.Get(node)
	if errors.Is(err, zk.ErrNoNode) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("zookeeper read lock node: %w", err)
	}
	if len(data) == 0 {
		return 0, false, nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return time.UnixMilli(ms).Sub(l.now()), true, nil
}

// deleteNode removes one node. A node that is already gone, for example
// after its lease ran out, is not an error.
func (l *ZooKeeperLocker) deleteNode(node string) func() error {
	return func() error {
		err := l.conn.Delete(node, -1)
		if err != nil && !errors.Is(err, zk.ErrNoNode) {
			return fmt.Errorf("zookeeper delete lock node: %w", err)
		}
		return nil
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (l *ZooKeeperLocker) parentOf(key string) string {
	return path.Join(l.root, strings.ReplaceAll(key, "/", "_"))
}

func (l *ZooKeeperLocker) ensurePath(p string) error {
	current := ""
	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		current += "/" + part
		_, err := l.conn.Create(current, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return fmt.Errorf("zookeeper create %s: %w", current, err)
		}
	}
	return nil
}

// sortBySequence orders protected node names ("_c_<guid>-lock-0000000007")
// by their trailing sequence number.
func sortBySequence(children []string) {
	sort.Slice(children, func(i, j int) bool {
		return sequenceOf(children[i]) < sequenceOf(children[j])
	})
}

func sequenceOf(name string) string {
	if idx := strings.LastIndex(name, zkNodePrefix); idx >= 0 {
		return name[idx+len(zkNodePrefix):]
	}
	return name
}

func indexOf(items []string, target string) int {
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}
