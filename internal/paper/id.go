package paper

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu   sync.Mutex
	idMono io.Reader
)

func init() {
	// 以 crypto/rand 播种，配合 ulid.Monotonic 保证同一毫秒内
	// 生成的头寸标识依然按时间单调递增。
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	idMono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// newID 返回按生成时间可排序的 ULID 字符串。
func newID(ts time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(ts.UTC()), idMono)
	if err != nil {
		// 只有在时间回拨或熵源耗尽时才可能发生。
		panic(err)
	}
	return id.String()
}
