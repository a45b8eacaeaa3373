// Package uploads stores model files on disk and knows which formats the
// platform accepts.
package uploads

import (
	"path/filepath"
	"strings"
)

// MaxFileSize is the default upload ceiling (1 GiB).
const MaxFileSize int64 = 1 << 30

// Category groups extensions by what the file represents.
type Category string

const (
	CategoryStaticModel     Category = "static_model"
	CategoryBIMModel        Category = "bim_model"
	CategoryPointCloud      Category = "point_cloud"
	CategoryVolumetricVideo Category = "volumetric_video"
	CategoryPhotogrammetry  Category = "photogrammetry"
	CategoryImage           Category = "image"
	CategoryData            Category = "data"
)

// categoryOrder decides which category wins for extensions listed in several.
var categoryOrder = []Category{
	CategoryStaticModel,
	CategoryBIMModel,
	CategoryPointCloud,
	CategoryVolumetricVideo,
	CategoryPhotogrammetry,
	CategoryImage,
	CategoryData,
}

var categories = map[Category][]string{
	CategoryStaticModel:     {".obj", ".fbx", ".gltf", ".glb", ".stl", ".dae", ".3ds", ".3dm", ".ply"},
	CategoryBIMModel:        {".ifc", ".rvt", ".nwd", ".nwc", ".dwg"},
	CategoryPointCloud:      {".las", ".laz", ".e57", ".xyz", ".pts", ".rcp", ".rcs"},
	CategoryVolumetricVideo: {".ply", ".obj"},
	CategoryPhotogrammetry:  {".jpg", ".jpeg", ".png", ".tiff", ".tif"},
	CategoryImage:           {".jpg", ".jpeg", ".png", ".tiff", ".tif"},
	CategoryData:            {".csv", ".json", ".pdf"},
}

// AllowedExtensions lists every extension accepted for upload.
var AllowedExtensions = []string{
	".obj", ".fbx", ".gltf", ".glb", ".stl", ".usd", ".usdz", ".dae", ".3ds", ".3dm", ".ply",
	".ifc", ".rvt", ".nwd", ".nwc", ".dwg",
	".las", ".laz", ".e57", ".xyz", ".pts", ".rcp", ".rcs",
	".jpg", ".jpeg", ".png", ".tiff", ".tif",
	".csv", ".json", ".pdf",
}

var descriptions = map[string]string{
	".obj":  "Wavefront OBJ",
	".fbx":  "Autodesk FBX",
	".gltf": "glTF 2.0",
	".glb":  "glTF Binary",
	".stl":  "STL (Stereolithography)",
	".ifc":  "Industry Foundation Classes",
	".ply":  "PLY (Polygon File Format)",
	".dae":  "Collada DAE",
	".3ds":  "3D Studio",
	".las":  "LAS (Point Cloud)",
	".laz":  "LAZ (Compressed Point Cloud)",
}

// Extension returns the lower-cased extension of name including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsAllowedExtension reports whether ext may be uploaded.
func IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

// CategoryOf returns the first category listing ext, or "" when none does.
func CategoryOf(ext string) Category {
	ext = strings.ToLower(ext)
	for _, category := range categoryOrder {
		if InCategory(category, ext) {
			return category
		}
	}
	return ""
}

// InCategory reports whether ext belongs to category.
func InCategory(category Category, ext string) bool {
	ext = strings.ToLower(ext)
	for _, candidate := range categories[category] {
		if candidate == ext {
			return true
		}
	}
	return false
}

// IsVolumetric reports whether ext can carry a volumetric frame sequence.
func IsVolumetric(ext string) bool {
	return InCategory(CategoryVolumetricVideo, ext)
}

// Describe returns a human readable name for ext.
func Describe(ext string) string {
	ext = strings.ToLower(ext)
	if desc, ok := descriptions[ext]; ok {
		return desc
	}
	return strings.ToUpper(strings.TrimPrefix(ext, "."))
}
