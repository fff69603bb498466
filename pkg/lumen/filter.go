package lumen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FilterValue is one node of a filter tree: a scalar leaf, a comparison, an
// OR-list, or a nested sub-tree. Values are validated when the tree is built
// so that serialization never fails mid-request.
type FilterValue interface {
	isFilterValue()
}

type filterLeaf struct {
	text string
}

func (filterLeaf) isFilterValue() {}

type filterComparison struct {
	prefix string
	text   string
}

func (filterComparison) isFilterValue() {}

type filterOr struct {
	values []FilterValue
}

func (filterOr) isFilterValue() {}

type filterTree struct {
	children map[string]FilterValue
}

func (filterTree) isFilterValue() {}

// filterInvalid defers a construction error until the query is finalized, so
// chained builder calls stay fluent.
type filterInvalid struct {
	err error
}

func (filterInvalid) isFilterValue() {}

// GreaterThan matches values strictly greater than v.
func GreaterThan(v interface{}) FilterValue {
	return comparison(">", v)
}

// LessThan matches values strictly less than v.
func LessThan(v interface{}) FilterValue {
	return comparison("<", v)
}

// Not negates an equality match.
func Not(v interface{}) FilterValue {
	return comparison("!", v)
}

// Between matches values in the inclusive range [from, to].
func Between(from, to interface{}) FilterValue {
	low, err := renderScalar(from)
	if err != nil {
		return filterInvalid{err: err}
	}

	high, err := renderScalar(to)
	if err != nil {
		return filterInvalid{err: err}
	}

	return filterLeaf{text: low + "-" + high}
}

// Null matches records where the field is absent.
func Null() FilterValue {
	return filterLeaf{text: "null"}
}

// NotNull matches records where the field is present.
func NotNull() FilterValue {
	return filterComparison{prefix: "!", text: "null"}
}

// AnyOf matches records where the field equals any of the given values
// (logical OR, pipe-joined on the wire).
func AnyOf(values ...interface{}) FilterValue {
	members := make([]FilterValue, 0, len(values))

	for _, v := range values {
		node, err := newFilterValue(v)
		if err != nil {
			return filterInvalid{err: err}
		}

		members = append(members, node)
	}

	return filterOr{values: members}
}

func comparison(prefix string, v interface{}) FilterValue {
	text, err := renderScalar(v)
	if err != nil {
		return filterInvalid{err: err}
	}

	return filterComparison{prefix: prefix, text: text}
}

// newFilterValue converts an arbitrary caller-supplied value into a validated
// tree node. Maps become sub-trees, slices become OR-lists, scalars become
// leaves; anything else is rejected.
func newFilterValue(v interface{}) (FilterValue, error) {
	switch value := v.(type) {
	case nil:
		return filterLeaf{text: "null"}, nil
	case FilterValue:
		return value, nil
	case map[string]interface{}:
		children := make(map[string]FilterValue, len(value))

		for key, sub := range value {
			node, err := newFilterValue(sub)
			if err != nil {
				return nil, err
			}

			children[key] = node
		}

		return filterTree{children: children}, nil
	case []interface{}:
		members := make([]FilterValue, 0, len(value))

		for _, sub := range value {
			node, err := newFilterValue(sub)
			if err != nil {
				return nil, err
			}

			members = append(members, node)
		}

		return filterOr{values: members}, nil
	case []string:
		members := make([]FilterValue, 0, len(value))
		for _, s := range value {
			members = append(members, filterLeaf{text: s})
		}

		return filterOr{values: members}, nil
	default:
		text, err := renderScalar(v)
		if err != nil {
			return nil, err
		}

		return filterLeaf{text: text}, nil
	}
}

// renderScalar renders a supported scalar to its wire text.
func renderScalar(v interface{}) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case bool:
		return strconv.FormatBool(value), nil
	case int:
		return strconv.Itoa(value), nil
	case int32:
		return strconv.FormatInt(int64(value), 10), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	case uint:
		return strconv.FormatUint(uint64(value), 10), nil
	case uint64:
		return strconv.FormatUint(value, 10), nil
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	case time.Time:
		return value.Format("2006-01-02"), nil
	default:
		return "", fmt.Errorf("unsupported filter value type %T", v)
	}
}

// renderFilterValue renders a node to the text that follows "field:" on the
// wire. Nested trees are flattened by the caller and never reach here.
func renderFilterValue(field string, v FilterValue) (string, error) {
	switch node := v.(type) {
	case filterLeaf:
		return node.text, nil
	case filterComparison:
		return node.prefix + node.text, nil
	case filterOr:
		parts := make([]string, 0, len(node.values))

		for _, member := range node.values {
			switch m := member.(type) {
			case filterLeaf:
				parts = append(parts, m.text)
			case filterComparison:
				parts = append(parts, m.prefix+m.text)
			case filterInvalid:
				return "", &InvalidFilterError{Field: field, Reason: m.err.Error()}
			default:
				return "", &InvalidFilterError{Field: field, Reason: "OR-lists may contain only scalar values"}
			}
		}

		return strings.Join(parts, "|"), nil
	case filterInvalid:
		return "", &InvalidFilterError{Field: field, Reason: node.err.Error()}
	default:
		return "", &InvalidFilterError{Field: field, Reason: fmt.Sprintf("unserializable node %T", v)}
	}
}

// flattenFilters walks a filter map and emits dotted-path key/value pairs,
// sorted by key so equal trees always serialize identically.
func flattenFilters(filters map[string]FilterValue) ([]string, error) {
	var pairs []string

	var walk func(prefix string, node FilterValue) error

	walk = func(prefix string, node FilterValue) error {
		tree, ok := node.(filterTree)
		if !ok {
			text, err := renderFilterValue(prefix, node)
			if err != nil {
				return err
			}

			pairs = append(pairs, prefix+":"+text)

			return nil
		}

		for key, child := range tree.children {
			err := walk(prefix+"."+key, child)
			if err != nil {
				return err
			}
		}

		return nil
	}

	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := walk(key, filters[key])
		if err != nil {
			return nil, err
		}
	}

	// Nested trees may append out of order relative to their siblings.
	sort.Strings(pairs)

	return pairs, nil
}
