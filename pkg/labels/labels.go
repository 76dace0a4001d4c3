// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package labels holds the well-known label, annotation, and metadata-type
// constants shared by every component that reads or writes provision,
// init, or dxp config objects.
package labels

const (
	// MetadataType classifies a config object as provision, init, or dxp.
	MetadataType = "lxc.liferay.com/metadataType"

	MetadataTypeProvision = "ext-provision"
	MetadataTypeInit      = "ext-init"
	MetadataTypeDXP       = "dxp"

	// VirtualInstanceID and ServiceID identify the (v, s) pair a
	// provision or init object belongs to; dxp objects carry only
	// VirtualInstanceID.
	VirtualInstanceID = "dxp.lxc.liferay.com/virtualInstanceId"
	ServiceID          = "ext.lxc.liferay.com/serviceId"
)

const (
	// ZipHash, LCPJSON, Domains, and MainDomain are annotations the Build
	// Controller stamps onto the provision object it writes. MainDomain
	// mirrors Domains, restoring a field the original build step wrote
	// alongside the full host rule.
	ZipHash    = "lxc.liferay.com/zip-hash"
	LCPJSON    = "lxc.liferay.com/lcp-json"
	Domains    = "ext.lxc.liferay.com/domains"
	MainDomain = "ext.lxc.liferay.com/mainDomain"
)
