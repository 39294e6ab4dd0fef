package teaming

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRoster      = errors.New("学生名单为空")
	ErrNoScoringFactors = errors.New("没有任何权重大于 0 的评分因素")
)

// ConfigurationError 表示在运行任何一代之前就发现的配置错误
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置错误 (%s): %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}

type SizeMismatchError struct {
	Students int
	Planned  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("队伍人数之和 %d 与学生人数 %d 不一致", e.Planned, e.Students)
}

type InvalidTeamSizeError struct {
	Size     int
	Students int
}

func (e *InvalidTeamSizeError) Error() string {
	return fmt.Sprintf("队伍人数 %d 对于 %d 名学生不合法", e.Size, e.Students)
}

// AttributeLengthError 表示某个学生的属性数组长度与评分配置不一致
type AttributeLengthError struct {
	StudentID int64
	Got       int
	Want      int
}

func (e *AttributeLengthError) Error() string {
	return fmt.Sprintf("学生 %d 有 %d 个属性，应为 %d 个", e.StudentID, e.Got, e.Want)
}
