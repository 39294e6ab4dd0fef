package teaming

import (
	"fmt"
	"slices"
)

// attributeRange: 全体学生中某个属性的取值范围
type attributeRange struct {
	min    int
	max    int
	unique int
}

// Roster: 一次运行中不可变的学生视图
type Roster struct {
	students []Student
	index    map[int64]int // 学生 ID -> 下标
	ranges   []attributeRange

	// 约束已经转换成名单内的下标，名单外的 ID 会被忽略
	required  [][]int
	prevented [][]int
	requested [][]int
}

// NewRoster 校验并标定学生名单，numAttributes 为评分配置中的属性数量
func NewRoster(students []Student, numAttributes int) (*Roster, error) {
	if len(students) == 0 {
		return nil, configError("students", ErrEmptyRoster)
	}

	r := &Roster{
		students:  make([]Student, len(students)),
		index:     make(map[int64]int, len(students)),
		ranges:    make([]attributeRange, numAttributes),
		required:  make([][]int, len(students)),
		prevented: make([][]int, len(students)),
		requested: make([][]int, len(students)),
	}
	copy(r.students, students)

	for i, student := range r.students {
		if _, exists := r.index[student.ID]; exists {
			return nil, configError("students", fmt.Errorf("学生 ID %d 重复", student.ID))
		}
		if len(student.Attributes) != numAttributes {
			return nil, configError("students", &AttributeLengthError{StudentID: student.ID, Got: len(student.Attributes), Want: numAttributes})
		}
		r.index[student.ID] = i
	}

	for i, student := range r.students {
		r.required[i] = r.resolve(student.RequiredWith, i)
		r.prevented[i] = r.resolve(student.PreventedWith, i)
		r.requested[i] = r.resolve(student.RequestedWith, i)
	}

	for attr := 0; attr < numAttributes; attr++ {
		r.ranges[attr] = r.calibrate(attr)
	}

	return r, nil
}

func (r *Roster) resolve(ids []int64, self int) []int {
	resolved := make([]int, 0, len(ids))
	for _, id := range ids {
		idx, ok := r.index[id]
		if !ok || idx == self || slices.Contains(resolved, idx) {
			continue
		}
		resolved = append(resolved, idx)
	}
	return resolved
}

// calibrate 以全体学生中实际出现的取值标定属性范围
func (r *Roster) calibrate(attr int) attributeRange {
	seen := make(map[int]struct{})
	rng := attributeRange{}
	first := true
	for _, student := range r.students {
		for _, v := range student.Attributes[attr] {
			if v == Unknown {
				continue
			}
			if first {
				rng.min, rng.max = v, v
				first = false
			}
			rng.min = min(rng.min, v)
			rng.max = max(rng.max, v)
			seen[v] = struct{}{}
		}
	}
	rng.unique = len(seen)
	return rng
}

func (r *Roster) Len() int {
	return len(r.students)
}

func (r *Roster) Student(i int) *Student {
	return &r.students[i]
}

// IndexOf 返回学生 ID 对应的下标
func (r *Roster) IndexOf(id int64) (int, bool) {
	idx, ok := r.index[id]
	return idx, ok
}

func (r *Roster) NumAttributes() int {
	return len(r.ranges)
}

func (r *Roster) hasRequired() bool {
	return r.anyConstraint(r.required)
}

func (r *Roster) hasPrevented() bool {
	return r.anyConstraint(r.prevented)
}

func (r *Roster) hasRequested() bool {
	return r.anyConstraint(r.requested)
}

func (r *Roster) anyConstraint(lists [][]int) bool {
	for _, l := range lists {
		if len(l) > 0 {
			return true
		}
	}
	return false
}
