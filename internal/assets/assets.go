// Package assets hands the templates embedded by the main package to the
// inner packages. Tests substitute an os.DirFS rooted at the repository.
package assets

import "io/fs"

var data fs.FS

func GetData() fs.FS {
	return data
}

func UpdateData(d fs.FS) {
	data = d
}
