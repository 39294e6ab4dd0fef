package utils

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

// 时区属性的取值范围（相对 UTC 的分钟数）
const (
	minTimezoneOffset = -12 * 60
	maxTimezoneOffset = 14 * 60
)

var validGenders = []teaming.Gender{
	teaming.GenderWoman,
	teaming.GenderMan,
	teaming.GenderNonbinary,
	teaming.GenderUnknown,
}

func ValidateRosterAttributes(roster *domain.Roster) error {
	if roster.BlocksPerDay < 1 || roster.BlocksPerDay > 64 {
		return fmt.Errorf("每天的时间块数量必须在 1~64 之间")
	}

	names := make(map[string]struct{}, len(roster.Attributes))
	for i, attr := range roster.Attributes {
		if attr.Name == "" {
			return fmt.Errorf("属性 %d 的名称不能为空", i)
		}
		if _, exists := names[attr.Name]; exists {
			return fmt.Errorf("属性名称 %s 重复", attr.Name)
		}
		names[attr.Name] = struct{}{}

		switch attr.Kind {
		case teaming.KindTimezone:
			if len(attr.Options) > 0 {
				return fmt.Errorf("时区属性 %s 不能有选项", attr.Name)
			}
		case teaming.KindOrdered, teaming.KindMultiOrdered, teaming.KindCategorical, teaming.KindMultiCategorical:
			if len(attr.Options) == 0 {
				return fmt.Errorf("属性 %s 至少需要一个选项", attr.Name)
			}
		default:
			return fmt.Errorf("属性 %s 的类型 %q 不合法", attr.Name, attr.Kind)
		}
	}

	return nil
}

// ValidateRosterStudents 检查每个学生的数据是否与名单的属性定义一致
func ValidateRosterStudents(roster *domain.Roster) error {
	if len(roster.Students) < 2 {
		return errors.New("名单中至少需要两名学生")
	}

	numbers := make(map[string]struct{}, len(roster.Students))
	for _, student := range roster.Students {
		if student.StudentNumber == "" {
			return errors.New("学号不能为空")
		}
		if _, exists := numbers[student.StudentNumber]; exists {
			return fmt.Errorf("学号 %s 重复", student.StudentNumber)
		}
		numbers[student.StudentNumber] = struct{}{}
	}

	for _, student := range roster.Students {
		if err := validateStudent(roster, &student, numbers); err != nil {
			return fmt.Errorf("学生 %s: %w", student.StudentNumber, err)
		}
	}

	return nil
}

func validateStudent(roster *domain.Roster, student *domain.StudentRecord, numbers map[string]struct{}) error {
	for _, gender := range student.Genders {
		if !slices.Contains(validGenders, gender) {
			return fmt.Errorf("性别 %q 不合法", gender)
		}
	}

	if len(student.Attributes) != len(roster.Attributes) {
		return fmt.Errorf("有 %d 个属性，名单定义了 %d 个", len(student.Attributes), len(roster.Attributes))
	}
	for i, values := range student.Attributes {
		if err := validateAttributeValues(&roster.Attributes[i], values); err != nil {
			return err
		}
	}

	if len(student.Availability) > teaming.DaysPerWeek {
		return fmt.Errorf("时间表最多 %d 天", teaming.DaysPerWeek)
	}
	for day, blocks := range student.Availability {
		for _, block := range blocks {
			if block < 0 || block >= roster.BlocksPerDay {
				return fmt.Errorf("第 %d 天的时间块 %d 超出范围", day, block)
			}
		}
	}

	for _, list := range [][]string{student.RequiredWith, student.PreventedWith, student.RequestedWith} {
		for _, number := range list {
			if number == student.StudentNumber {
				return errors.New("不能把自己设为队友要求")
			}
			if _, exists := numbers[number]; !exists {
				return fmt.Errorf("队友要求中的学号 %s 不在名单中", number)
			}
		}
	}

	return nil
}

func validateAttributeValues(attr *domain.AttributeDefinition, values []int) error {
	if len(values) == 0 {
		return fmt.Errorf("属性 %s 没有取值，未填写请使用 %d", attr.Name, teaming.Unknown)
	}
	multi := attr.Kind == teaming.KindMultiOrdered || attr.Kind == teaming.KindMultiCategorical
	if !multi && len(values) > 1 {
		return fmt.Errorf("属性 %s 只能有一个取值", attr.Name)
	}

	for _, v := range values {
		if v == teaming.Unknown {
			if len(values) > 1 {
				return fmt.Errorf("属性 %s 未填写时不能有其他取值", attr.Name)
			}
			continue
		}
		if attr.Kind == teaming.KindTimezone {
			if v < minTimezoneOffset || v > maxTimezoneOffset {
				return fmt.Errorf("属性 %s 的时区偏移 %d 分钟超出范围", attr.Name, v)
			}
			continue
		}
		if v < 0 || v >= len(attr.Options) {
			return fmt.Errorf("属性 %s 的取值 %d 超出范围", attr.Name, v)
		}
	}
	return nil
}

// ValidateScoringOptions 检查评分配置中引用的取值是否与名单的属性定义一致
func ValidateScoringOptions(roster *domain.Roster, opts *domain.ScoringOptions) error {
	if len(opts.Attributes) != len(roster.Attributes) {
		return fmt.Errorf("评分配置有 %d 个属性，名单定义了 %d 个", len(opts.Attributes), len(roster.Attributes))
	}

	for i, scoring := range opts.Attributes {
		attr := &roster.Attributes[i]
		if attr.Kind == teaming.KindTimezone {
			if len(scoring.RequiredValues) > 0 || len(scoring.IncompatiblePairs) > 0 {
				return fmt.Errorf("时区属性 %s 不支持取值规则", attr.Name)
			}
			continue
		}
		for _, v := range scoring.RequiredValues {
			if v < 0 || v >= len(attr.Options) {
				return fmt.Errorf("属性 %s 的必需取值 %d 超出范围", attr.Name, v)
			}
		}
		for _, pair := range scoring.IncompatiblePairs {
			if pair[0] < 0 || pair[0] >= len(attr.Options) || pair[1] < 0 || pair[1] >= len(attr.Options) {
				return fmt.Errorf("属性 %s 的互斥取值 (%d, %d) 超出范围", attr.Name, pair[0], pair[1])
			}
		}
	}

	if opts.MeetingBlockSize > roster.BlocksPerDay {
		return fmt.Errorf("会议时长不能超过每天的时间块数量 %d", roster.BlocksPerDay)
	}

	return nil
}
