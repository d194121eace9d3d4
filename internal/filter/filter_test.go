package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/spacesaver/internal/files"
)

func desc(path string, size int64) files.Descriptor {
	return files.Descriptor{Path: path, Size: size, Kind: files.KindOf(path)}
}

func names(descs []files.Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name()
	}
	return out
}

func TestPredicates(t *testing.T) {
	small := desc("/x/small.txt", 10)
	big := desc("/x/BIG.PNG", 5000)
	empty := desc("/x/.hidden", 0)

	tests := []struct {
		name string
		pred Predicate
		d    files.Descriptor
		want bool
	}{
		{"min keeps equal", MinSize(10), small, true},
		{"min drops smaller", MinSize(11), small, false},
		{"max keeps equal", MaxSize(5000), big, true},
		{"max drops larger", MaxSize(4999), big, false},
		{"ext case-insensitive", Extensions("png"), big, true},
		{"ext with dot", Extensions(".PNG"), big, true},
		{"ext miss", Extensions("jpg"), big, false},
		{"ext none on extensionless", Extensions("hidden"), empty, false},
		{"empty", Empty(), empty, true},
		{"not empty", Empty(), small, false},
		{"hidden", Hidden(), empty, true},
		{"not hidden", Hidden(), small, false},
		{"not", Not(Hidden()), small, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(tt.d))
		})
	}
}

func TestPattern(t *testing.T) {
	sub, err := Pattern("vacation")
	require.NoError(t, err)
	assert.True(t, sub(desc("/p/my_vacation_01.jpg", 1)))
	assert.False(t, sub(desc("/vacation/other.jpg", 1)), "directory names are not matched")

	g, err := Pattern("IMG_*.jpg")
	require.NoError(t, err)
	assert.True(t, g(desc("/p/IMG_0001.jpg", 1)))
	assert.False(t, g(desc("/p/IMG_0001.png", 1)))

	_, err = Pattern("[unclosed")
	assert.Error(t, err)
}

func TestAllAny(t *testing.T) {
	d := desc("/a/b.png", 100)
	assert.True(t, All()(d))
	assert.False(t, Any()(d))
	assert.True(t, All(MinSize(1), Extensions("png"))(d))
	assert.False(t, All(MinSize(1), Extensions("jpg"))(d))
	assert.True(t, Any(Extensions("jpg"), MinSize(50))(d))
	assert.False(t, Any(Extensions("jpg"), MinSize(500))(d))
}

func TestSpec_Filter(t *testing.T) {
	in := []files.Descriptor{
		desc("/r/a.jpg", 5),
		desc("/r/b.jpg", 200000),
		desc("/r/c.png", 200000),
		desc("/r/d.txt", 300000),
	}

	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{"zero spec keeps all", Spec{}, []string{"a.jpg", "b.jpg", "c.png", "d.txt"}},
		{"min", Spec{MinSize: Int64(100000)}, []string{"b.jpg", "c.png", "d.txt"}},
		{"max", Spec{MaxSize: Int64(200000)}, []string{"a.jpg", "b.jpg", "c.png"}},
		{"ext and min", Spec{MinSize: Int64(100), Extensions: []string{"jpg"}}, []string{"b.jpg"}},
		{"pattern", Spec{NamePattern: "c."}, []string{"c.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Filter(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
	assert.Len(t, in, 4, "input slice must not be modified")
}

func TestSpec_MergeExtensions(t *testing.T) {
	s := Spec{Extensions: []string{"PNG", "txt"}}
	assert.Equal(t, []string{"png"}, s.MergeExtensions([]string{"png", "jpg"}).Extensions)

	s = Spec{Extensions: []string{"txt"}}
	assert.Equal(t, []string{"png", "jpg"}, s.MergeExtensions([]string{"png", "jpg"}).Extensions)

	s = Spec{}
	assert.Equal(t, []string{"zip"}, s.MergeExtensions([]string{"zip"}).Extensions)
	assert.Nil(t, Spec{}.MergeExtensions(nil).Extensions)
}
