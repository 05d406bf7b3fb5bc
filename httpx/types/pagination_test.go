package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageQuery_Defaults(t *testing.T) {
	p := PageQuery{}
	p.ApplyDefaults()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = PageQuery{Page: 3, PageSize: 10}
	assert.Equal(t, 20, p.Offset())
}

func TestPageQuery_Validate(t *testing.T) {
	assert.NoError(t, PageQuery{}.Validate())
	assert.Error(t, PageQuery{Page: -1}.Validate())
	assert.Error(t, PageQuery{PageSize: MaxPageSize + 1}.Validate())
}

func TestNewPageMeta(t *testing.T) {
	assert.Equal(t, PageMeta{Total: 41, Page: 1, PageSize: 20, Pages: 3}, NewPageMeta(41, 1, 20))
	assert.Equal(t, 0, NewPageMeta(0, 1, 20).Pages)
}

func TestCopySlice(t *testing.T) {
	out := CopySlice([]int{1, 2}, func(i int) string { return string(rune('a' + i)) })
	assert.Equal(t, []string{"b", "c"}, out)
	assert.Nil(t, CopySlice[int, string](nil, nil))
}
