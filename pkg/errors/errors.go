package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：日程或审批记录已被并发请求修改
var ErrOptimisticLock = errors.New("记录已被其他操作修改，请刷新后重试")
