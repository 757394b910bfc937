package container

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrQueueFull = errors.New("queue capacity reached")
)

// CursorQueue 带读游标的有界只追加队列
// 功能：作为单个方向的等待队列，生产者追加元素，调度者通过游标按FIFO顺序取出
// 说明：
// 1. 元素只追加不删除，游标只增不减，游标之前的元素视为已取出
// 2. 容量<=0表示不限容量
// 3. 所有操作线程安全
type CursorQueue[T any] struct {
	ID       string     // 队列标识符
	mtx      sync.Mutex // 保护data与cursor
	data     []T        // 按追加顺序保存的全部元素
	cursor   int        // 下一个待取出元素的下标，cursor<=len(data)
	capacity int        // 最多可追加的元素数
}

// NewCursorQueue 创建队列
// 参数：id-队列标识符，capacity-容量（<=0表示不限）
// 返回：新创建的队列指针
func NewCursorQueue[T any](id string, capacity int) *CursorQueue[T] {
	return &CursorQueue[T]{
		ID:       id,
		data:     make([]T, 0, max(capacity, 0)),
		capacity: capacity,
	}
}

// String 获取队列的字符串表示
func (q *CursorQueue[T]) String() string {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return fmt.Sprintf("CursorQueue{ID:%v, Len:%d, Cursor:%d}", q.ID, len(q.data), q.cursor)
}

// Append 追加元素
// 返回：达到容量时返回ErrQueueFull，元素不会被加入
func (q *CursorQueue[T]) Append(x T) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if q.capacity > 0 && len(q.data) >= q.capacity {
		return fmt.Errorf("%w: %s (capacity %d)", ErrQueueFull, q.ID, q.capacity)
	}
	q.data = append(q.data, x)
	return nil
}

// Next 取出下一个等待中的元素
// 返回：元素与是否取到，队列中没有等待元素时返回零值与false
func (q *CursorQueue[T]) Next() (T, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	var zero T
	if q.cursor >= len(q.data) {
		return zero, false
	}
	x := q.data[q.cursor]
	q.cursor++
	return x, true
}

// Drain 取出全部等待中的元素
// 功能：按FIFO顺序返回游标之后的全部元素，并把游标推进到末尾
// 返回：等待元素列表，可能为空
func (q *CursorQueue[T]) Drain() []T {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	out := make([]T, len(q.data)-q.cursor)
	copy(out, q.data[q.cursor:])
	q.cursor = len(q.data)
	return out
}

// Waiting 等待中的元素数（len-cursor）
func (q *CursorQueue[T]) Waiting() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.data) - q.cursor
}

// Len 已追加的元素总数
func (q *CursorQueue[T]) Len() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.data)
}

// Cursor 当前游标
func (q *CursorQueue[T]) Cursor() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.cursor
}

// Cap 容量，<=0表示不限
func (q *CursorQueue[T]) Cap() int {
	return q.capacity
}

// Full 是否已达到容量
func (q *CursorQueue[T]) Full() bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.capacity > 0 && len(q.data) >= q.capacity
}

// Values 获取已追加的全部元素（副本）
func (q *CursorQueue[T]) Values() []T {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	out := make([]T, len(q.data))
	copy(out, q.data)
	return out
}
